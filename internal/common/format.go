package common

import (
	"fmt"
	"strings"

	"staking-ledger-go/internal/models"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

// Count is one labelled line of a job summary.
type Count struct {
	Label string
	Value any
}

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a title framed by '=' lines.
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintSummary prints a header followed by aligned label/value lines.
func PrintSummary(title string, counts []Count) {
	PrintHeader(title, DefaultWidth)
	pad := 0
	for _, c := range counts {
		pad = max(pad, len(c.Label))
	}
	for _, c := range counts {
		fmt.Printf("%-*s  %v\n", pad+1, c.Label+":", c.Value)
	}
	PrintSeparator("=", DefaultWidth)
}

func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the tree prefix for a list item.
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// FormatPools renders the three pools of a balance in a fixed-width row.
func FormatPools(b models.Balance) string {
	return fmt.Sprintf("available %18s  staked %18s  rewards %18s",
		b.Available.String(), b.Staked.String(), b.TotalRewards.String())
}

// FormatBalance renders a balance with its currency and version.
func FormatBalance(b models.Balance) string {
	return fmt.Sprintf("%-6s %s (v%d)", b.Currency, FormatPools(b), b.Version)
}

// PoolsMatch reports whether two balances agree on every pool.
func PoolsMatch(a, b models.Balance) bool {
	return a.Available.Equal(b.Available) &&
		a.Staked.Equal(b.Staked) &&
		a.TotalRewards.Equal(b.TotalRewards)
}

func StatusMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

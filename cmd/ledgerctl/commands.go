package main

import (
	"context"
	"errors"
	"fmt"

	"staking-ledger-go/internal/common"
	"staking-ledger-go/internal/config"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/server"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	cli "gopkg.in/urfave/cli.v1"
)

func withServices(fn func(ctx context.Context, services *common.Services) error) func(*cli.Context) error {
	return func(*cli.Context) error {
		ctx := context.Background()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		services, err := common.InitializeServices(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer services.Close()
		return fn(ctx, services)
	}
}

func optionalDecimal(c *cli.Context, name string) (*decimal.Decimal, error) {
	raw := c.String(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

func requireFlag(c *cli.Context, names ...string) error {
	for _, name := range names {
		if c.String(name) == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}

var accrueAction = withServices(func(ctx context.Context, services *common.Services) error {
	result, err := services.Ledger.RunRewardAccrualPass(ctx)
	if err != nil {
		return err
	}
	common.PrintSummary("REWARD ACCRUAL", []common.Count{
		{Label: "Accrued", Value: result.Accrued},
		{Label: "Completed", Value: result.Completed},
		{Label: "Skipped", Value: result.Skipped},
		{Label: "Failed", Value: result.Failed},
		{Label: "Total rewards", Value: result.TotalRewards.String()},
	})
	return nil
})

var sweepAction = withServices(func(ctx context.Context, services *common.Services) error {
	result, err := services.Ledger.RunWithdrawalConditionSweep(ctx)
	if err != nil {
		return err
	}
	common.PrintSummary("WITHDRAWAL CONDITION SWEEP", []common.Count{
		{Label: "Checked", Value: result.Checked},
		{Label: "Met", Value: result.Met},
		{Label: "Processed", Value: result.Processed},
		{Label: "Failed", Value: result.Failed},
	})
	return nil
})

var payoutsAction = withServices(func(ctx context.Context, services *common.Services) error {
	if services.PrimeService == nil {
		return errors.New("prime credentials are not configured")
	}
	result, err := services.Ledger.DispatchPayouts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Payouts sent: %d, failed: %d\n", result.Sent, result.Failed)
	return nil
})

func balancesAction(c *cli.Context) error {
	return withServices(func(ctx context.Context, services *common.Services) error {
		users, err := common.SelectUsers(ctx, services.DbService, c.String(emailFlag.Name), c.String(userRoleFlag.Name))
		if err != nil {
			return err
		}

		common.PrintHeader("USER BALANCES", common.WideWidth)
		var withBalances int
		for _, user := range users {
			balances, err := services.Ledger.GetBalances(ctx, user.Id)
			if err != nil {
				zap.L().Error("Failed to get balances", zap.String("user_id", user.Id), zap.Error(err))
				continue
			}
			if len(balances) > 0 {
				withBalances++
			}
			printUserBalances(user, balances)
		}
		common.PrintFooter(fmt.Sprintf("%d users, %d with balances", len(users), withBalances), common.WideWidth)
		return nil
	})(c)
}

func printUserBalances(user models.User, balances []models.Balance) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s  Role: %s\n", user.Id, user.Role)
	fmt.Printf("│  Assets: %d\n", len(balances))
	common.PrintBoxSeparator(78)
	for i, b := range balances {
		fmt.Printf("%s %s\n", common.BoxPrefix(i == len(balances)-1), common.FormatBalance(b))
	}
}

func adjustAction(c *cli.Context) error {
	if err := requireFlag(c, userFlag.Name, currencyFlag.Name); err != nil {
		return err
	}
	var req models.AdjustBalanceRequest
	var err error
	if req.Available, err = optionalDecimal(c, availableFlag.Name); err != nil {
		return err
	}
	if req.Staked, err = optionalDecimal(c, stakedFlag.Name); err != nil {
		return err
	}
	if req.TotalRewards, err = optionalDecimal(c, rewardsFlag.Name); err != nil {
		return err
	}

	return withServices(func(ctx context.Context, services *common.Services) error {
		balance, err := services.Ledger.AdjustBalance(ctx, c.String(adminFlag.Name), c.String(userFlag.Name), c.String(currencyFlag.Name), req)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", balance.UserId, common.FormatBalance(*balance))
		return nil
	})(c)
}

func reconcileAction(c *cli.Context) error {
	if err := requireFlag(c, userFlag.Name); err != nil {
		return err
	}
	return withServices(func(ctx context.Context, services *common.Services) error {
		if services.Journal == nil {
			return errors.New("formance journal is not configured")
		}
		userId := c.String(userFlag.Name)
		balances, err := services.Ledger.GetBalances(ctx, userId)
		if err != nil {
			return err
		}

		var drifted int
		for _, local := range balances {
			mirrored, err := services.Journal.PoolBalances(ctx, userId, local.Currency)
			if err != nil {
				return err
			}
			ok := common.PoolsMatch(local, *mirrored)
			if !ok {
				drifted++
			}
			fmt.Printf("%s %-6s local   %s\n", common.StatusMark(ok), local.Currency, common.FormatPools(local))
			fmt.Printf("  %-6s journal %s\n", "", common.FormatPools(*mirrored))
		}
		if drifted > 0 {
			return fmt.Errorf("%d currencies differ from the journal", drifted)
		}
		return nil
	})(c)
}

func listPlansAction(c *cli.Context) error {
	return withServices(func(ctx context.Context, services *common.Services) error {
		plans, err := services.Ledger.ListPlans(ctx, !c.Bool(allPlansFlag.Name))
		if err != nil {
			return err
		}
		common.PrintHeader("STAKING PLANS", common.WideWidth)
		for _, p := range plans {
			status := "active"
			if !p.IsActive {
				status = "inactive"
			}
			fmt.Printf("%-36s %-20s %-6s apy %6s%%  lockup %3dd  min %s  %s\n",
				p.Id, p.Name, p.Currency, p.Apy.String(), p.LockupDays, p.MinStake.String(), status)
		}
		common.PrintSeparator("=", common.WideWidth)
		return nil
	})(c)
}

func createPlanAction(c *cli.Context) error {
	if err := requireFlag(c, nameFlag.Name, currencyFlag.Name, apyFlag.Name); err != nil {
		return err
	}
	apy, err := decimal.NewFromString(c.String(apyFlag.Name))
	if err != nil {
		return fmt.Errorf("--apy: %w", err)
	}
	minStake, err := decimal.NewFromString(c.String(minStakeFlag.Name))
	if err != nil {
		return fmt.Errorf("--min-stake: %w", err)
	}
	name := c.String(nameFlag.Name)
	currency := c.String(currencyFlag.Name)
	lockup := c.Int(lockupDaysFlag.Name)
	active := !c.Bool(inactiveFlag.Name)

	return withServices(func(ctx context.Context, services *common.Services) error {
		plan, err := services.Ledger.CreatePlan(ctx, c.String(adminFlag.Name), models.PlanRequest{
			Name:       &name,
			Currency:   &currency,
			Apy:        &apy,
			LockupDays: &lockup,
			MinStake:   &minStake,
			IsActive:   &active,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created plan %s (%s %s%%)\n", plan.Id, plan.Currency, plan.Apy.String())
		return nil
	})(c)
}

func tokenAction(c *cli.Context) error {
	if err := requireFlag(c, userFlag.Name); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	token, err := server.GenerateToken(cfg.Auth,
		c.String(userFlag.Name),
		c.String(emailFlag.Name),
		c.String(roleFlag.Name),
		c.Duration(ttlFlag.Name))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// ledgerctl runs ledger passes and admin chores from the command line.
package main

import (
	"fmt"
	"os"

	"staking-ledger-go/internal/common"

	cli "gopkg.in/urfave/cli.v1"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	app := cli.App{
		Name:  "ledgerctl",
		Usage: "Operate the staking ledger",
		Commands: []cli.Command{
			{
				Name:   "accrue",
				Usage:  "run one reward accrual pass",
				Action: accrueAction,
			},
			{
				Name:   "sweep",
				Usage:  "re-evaluate approved withdrawals waiting on a condition",
				Action: sweepAction,
			},
			{
				Name:   "payouts",
				Usage:  "send completed withdrawals through Prime",
				Action: payoutsAction,
			},
			{
				Name:   "balances",
				Usage:  "print balances for every user",
				Flags:  []cli.Flag{emailFlag, userRoleFlag},
				Action: balancesAction,
			},
			{
				Name:   "adjust",
				Usage:  "override balance pools for one user",
				Flags:  []cli.Flag{userFlag, currencyFlag, availableFlag, stakedFlag, rewardsFlag, adminFlag},
				Action: adjustAction,
			},
			{
				Name:   "reconcile",
				Usage:  "compare local balances with the Formance journal",
				Flags:  []cli.Flag{userFlag},
				Action: reconcileAction,
			},
			{
				Name:  "plans",
				Usage: "manage staking plans",
				Subcommands: []cli.Command{
					{
						Name:   "list",
						Usage:  "list staking plans",
						Flags:  []cli.Flag{allPlansFlag},
						Action: listPlansAction,
					},
					{
						Name:   "create",
						Usage:  "create a staking plan",
						Flags:  []cli.Flag{nameFlag, currencyFlag, apyFlag, lockupDaysFlag, minStakeFlag, inactiveFlag, adminFlag},
						Action: createPlanAction,
					},
				},
			},
			{
				Name:   "token",
				Usage:  "mint an access token for local testing",
				Flags:  []cli.Flag{userFlag, emailFlag, roleFlag, ttlFlag},
				Action: tokenAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		loggerCleanup()
		os.Exit(1)
	}
}

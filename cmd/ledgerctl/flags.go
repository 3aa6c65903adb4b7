package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	userFlag = cli.StringFlag{
		Name:  "user",
		Usage: "user id",
	}
	emailFlag = cli.StringFlag{
		Name:  "email",
		Usage: "limit output to the user with this email",
	}
	userRoleFlag = cli.StringFlag{
		Name:  "role",
		Usage: "only list users with this role",
	}
	currencyFlag = cli.StringFlag{
		Name:  "currency",
		Usage: "currency symbol, e.g. ETH",
	}
	adminFlag = cli.StringFlag{
		Name:  "admin",
		Value: "ledgerctl",
		Usage: "admin id recorded on the change",
	}
	availableFlag = cli.StringFlag{
		Name:  "available",
		Usage: "new available amount",
	}
	stakedFlag = cli.StringFlag{
		Name:  "staked",
		Usage: "new staked amount",
	}
	rewardsFlag = cli.StringFlag{
		Name:  "rewards",
		Usage: "new total rewards amount",
	}
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "plan name",
	}
	apyFlag = cli.StringFlag{
		Name:  "apy",
		Usage: "annual percentage yield, e.g. 5.5",
	}
	lockupDaysFlag = cli.IntFlag{
		Name:  "lockup-days",
		Usage: "lock-up period in days, 0 for flexible",
	}
	minStakeFlag = cli.StringFlag{
		Name:  "min-stake",
		Value: "0",
		Usage: "minimum stake amount",
	}
	inactiveFlag = cli.BoolFlag{
		Name:  "inactive",
		Usage: "create the plan disabled",
	}
	allPlansFlag = cli.BoolFlag{
		Name:  "all",
		Usage: "include inactive plans",
	}
	roleFlag = cli.StringFlag{
		Name:  "role",
		Value: "user",
		Usage: "token role (user|admin)",
	}
	ttlFlag = cli.DurationFlag{
		Name:  "ttl",
		Value: 24 * time.Hour,
		Usage: "token lifetime",
	}
)

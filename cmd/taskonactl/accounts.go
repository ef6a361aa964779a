package main

import (
	"fmt"
	"regexp"

	"taskona-ledger-go/internal/common"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(registerCmd, activateCmd, topupCmd, taskRewardCmd, payReferralCmd, balancesCmd, historyCmd)

	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().String("name", "", "Full name")
	registerCmd.Flags().String("referral-code", "", "Referral code of the inviting user")

	activateCmd.Flags().String("ref", "", "Activation payment reference (required)")
	_ = activateCmd.MarkFlagRequired("ref")

	topupCmd.Flags().String("ref", "", "Payment provider reference (default: generated)")

	balancesCmd.Flags().String("user", "", "Only show this user")

	historyCmd.Flags().Int("limit", 20, "Entries per page")
	historyCmd.Flags().Int("offset", 0, "Entries to skip")
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email != "" && !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

var registerCmd = &cobra.Command{
	Use:   "register USER_ID",
	Short: "Open a ledger account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		code, _ := cmd.Flags().GetString("referral-code")
		if err := validateEmail(email); err != nil {
			return err
		}

		account, err := app.services.Engine.RegisterAccount(cmd.Context(), settlement.Registration{
			UserId:       args[0],
			Email:        email,
			FullName:     name,
			ReferralCode: code,
		})
		if account == nil {
			return err
		}
		if err != nil {
			fmt.Printf("Warning: account created but referral was not recorded: %v\n", err)
		}
		fmt.Printf("Account %s created (referral code %s)\n", account.UserId, account.ReferralCode)
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate USER_ID",
	Short: "Activate an account after its fee payment cleared",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("ref")
		res, err := app.services.Engine.ActivateAccount(cmd.Context(), args[0], ref)
		return printResult(res, err)
	},
}

var topupCmd = &cobra.Command{
	Use:   "topup USER_ID AMOUNT",
	Short: "Credit a confirmed wallet top-up (amount in naira)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := money.ParseNaira(args[1])
		if err != nil {
			return err
		}
		ref, _ := cmd.Flags().GetString("ref")
		if ref == "" {
			ref = "manual-" + uuid.New().String()
		}
		res, err := app.services.Engine.TopUp(cmd.Context(), args[0], amount, ref)
		return printResult(res, err)
	},
}

var taskRewardCmd = &cobra.Command{
	Use:   "task-reward USER_ID TASK_ID AMOUNT",
	Short: "Pay the reward for an approved task (amount in naira)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := money.ParseNaira(args[2])
		if err != nil {
			return err
		}
		res, err := app.services.Engine.PayTaskReward(cmd.Context(), args[0], args[1], amount)
		return printResult(res, err)
	},
}

var payReferralCmd = &cobra.Command{
	Use:   "pay-referral REFERRER_ID REFERRED_ID",
	Short: "Pay the referral bonus for an activated referral",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.services.Engine.PayReferralBonus(cmd.Context(), args[0], args[1])
		return printResult(res, err)
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show account balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		accounts, err := common.LoadAccounts(cmd.Context(), app.services.DbService, user, app.logger)
		if err != nil {
			return err
		}

		common.PrintHeader("ACCOUNT BALANCES", common.DefaultWidth)
		total := money.Zero
		activated := 0
		for _, account := range accounts {
			printAccount(account)
			total = total.Add(account.Balance)
			if account.IsActivated {
				activated++
			}
		}
		common.PrintFooter(fmt.Sprintf("%d accounts (%d activated), total held %s",
			len(accounts), activated, common.FormatNaira(total)), common.DefaultWidth)
		return nil
	},
}

func printAccount(account models.Account) {
	status := "inactive"
	if account.IsActivated {
		status = "activated"
	}
	fmt.Printf("\n┌─ Account: %s (%s)\n", account.UserId, status)
	if account.Email != "" {
		fmt.Printf("│  Email: %s\n", account.Email)
	}
	fmt.Printf("│  Referral code: %s\n", account.ReferralCode)
	common.PrintBoxSeparator(common.DefaultWidth - 2)
	fmt.Printf("%sBalance: %s  Earned: %s\n",
		common.BoxPrefix(true), common.FormatNaira(account.Balance), common.FormatNaira(account.TotalEarned))
}

var historyCmd = &cobra.Command{
	Use:   "history USER_ID",
	Short: "Show an account's ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		entries, err := app.services.Engine.Entries(cmd.Context(), args[0], limit, offset)
		if err != nil {
			return err
		}

		common.PrintHeader(fmt.Sprintf("LEDGER ENTRIES FOR %s", args[0]), common.WideWidth)
		for i, entry := range entries {
			fmt.Printf("%s %-19s %-20s %14s %14s  %-9s %s\n",
				common.BoxPrefix(i == len(entries)-1),
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
				entry.Kind,
				common.FormatNaira(entry.Amount),
				common.FormatNaira(entry.BalanceAfter),
				entry.Status,
				common.ShortId(entry.Id))
		}
		common.PrintFooter(fmt.Sprintf("%d entries", len(entries)), common.WideWidth)
		return nil
	},
}

// printResult reports a settlement. Replays are shown, not treated as failures.
func printResult(res *settlement.Result, err error) error {
	if res != nil && res.Replayed {
		fmt.Printf("Already applied (key %s), returning the recorded result\n", res.IdempotencyKey)
		if err != nil {
			app.logger.Info("Replayed settlement", zap.String("code", settlement.CodeOf(err)))
		}
	} else if err != nil {
		return fmt.Errorf("%s (%s): %w", settlement.CodeOf(err), settlement.KindOf(err), err)
	}

	fmt.Printf("Operation:    %s\n", res.Operation)
	fmt.Printf("User:         %s\n", res.AccountId)
	fmt.Printf("Amount:       %s\n", common.FormatNaira(res.Amount))
	fmt.Printf("New balance:  %s\n", common.FormatNaira(res.Balance))
	if res.WithdrawalId != "" {
		fmt.Printf("Withdrawal:   %s\n", res.WithdrawalId)
	}
	if res.StreakDay > 0 {
		fmt.Printf("Streak:       day %d (streak %d)\n", res.StreakDay, res.CurrentStreak)
	}
	for _, id := range res.EntryIds {
		fmt.Printf("Entry:        %s\n", id)
	}
	return nil
}

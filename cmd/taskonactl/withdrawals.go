package main

import (
	"fmt"

	"taskona-ledger-go/internal/common"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"
	"taskona-ledger-go/internal/store"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(withdrawalCmd)
	withdrawalCmd.AddCommand(withdrawalRequestCmd, withdrawalListCmd, withdrawalApproveCmd, withdrawalRejectCmd, withdrawalProcessingCmd)

	withdrawalRequestCmd.Flags().String("bank", "", "Bank name (required)")
	withdrawalRequestCmd.Flags().String("account-number", "", "Bank account number (required)")
	withdrawalRequestCmd.Flags().String("account-name", "", "Bank account name (required)")
	withdrawalRequestCmd.Flags().String("idempotency-key", "", "Key that makes retries safe (default: generated)")

	withdrawalListCmd.Flags().String("status", string(models.WithdrawalPending), "Filter by status (empty for all)")
	withdrawalListCmd.Flags().String("user", "", "Filter by user")
	withdrawalListCmd.Flags().Int("limit", 50, "Maximum requests to show")
}

var withdrawalCmd = &cobra.Command{
	Use:   "withdrawal",
	Short: "Manage withdrawal requests",
}

var withdrawalRequestCmd = &cobra.Command{
	Use:   "request USER_ID AMOUNT",
	Short: "Reserve amount plus fee and queue a payout (amount in naira)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := money.ParseNaira(args[1])
		if err != nil {
			return err
		}
		bank, _ := cmd.Flags().GetString("bank")
		number, _ := cmd.Flags().GetString("account-number")
		name, _ := cmd.Flags().GetString("account-name")
		key, _ := cmd.Flags().GetString("idempotency-key")

		res, err := app.services.Engine.RequestWithdrawal(cmd.Context(), settlement.WithdrawalParams{
			UserId:         args[0],
			Amount:         amount,
			Bank:           models.BankDetails{BankName: bank, AccountNumber: number, AccountName: name},
			IdempotencyKey: key,
		})
		return printResult(res, err)
	},
}

var withdrawalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List withdrawal requests, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		requests, err := app.services.Engine.Withdrawals(cmd.Context(), store.WithdrawalFilter{
			UserId: user,
			Status: models.WithdrawalStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		common.PrintHeader("WITHDRAWAL REQUESTS", common.WideWidth)
		for i, w := range requests {
			fmt.Printf("%s %-20s %-12s %-10s %14s (+%s fee)  %s / %s / %s\n",
				common.BoxPrefix(i == len(requests)-1),
				w.Reference,
				w.UserId,
				w.Status,
				common.FormatNaira(w.Amount),
				common.FormatNaira(w.Fee),
				w.Bank.BankName, w.Bank.AccountNumber, w.Bank.AccountName)
			fmt.Printf("     id: %s  created: %s\n", w.Id, w.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		common.PrintFooter(fmt.Sprintf("%d requests", len(requests)), common.WideWidth)
		return nil
	},
}

var withdrawalApproveCmd = &cobra.Command{
	Use:   "approve WITHDRAWAL_ID",
	Short: "Mark a payout as sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.services.Engine.ApproveWithdrawal(cmd.Context(), args[0])
		return printResult(res, err)
	},
}

var withdrawalRejectCmd = &cobra.Command{
	Use:   "reject WITHDRAWAL_ID",
	Short: "Fail a payout and refund amount plus fee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.services.Engine.RejectWithdrawal(cmd.Context(), args[0])
		return printResult(res, err)
	},
}

var withdrawalProcessingCmd = &cobra.Command{
	Use:   "processing WITHDRAWAL_ID",
	Short: "Record that a payout was handed to the bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.services.Engine.MarkWithdrawalProcessing(cmd.Context(), args[0])
		return printResult(res, err)
	},
}

package main

import (
	"fmt"
	"time"

	"taskona-ledger-go/internal/common"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd, reconcileCmd, policyCmd)

	sweepCmd.Flags().Duration("stale-after", 5*time.Minute, "Resolve pending keys older than this")
	sweepCmd.Flags().Int("limit", 500, "Maximum keys to resolve")
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Resolve idempotency keys left pending by crashed requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		staleAfter, _ := cmd.Flags().GetDuration("stale-after")
		limit, _ := cmd.Flags().GetInt("limit")
		report, err := app.services.Engine.SweepPending(cmd.Context(), staleAfter, limit)
		if err != nil {
			return err
		}
		fmt.Printf("Scanned %d keys: %d completed, %d failed, %d skipped\n",
			report.Scanned, report.Completed, report.Failed, report.Skipped)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every stored balance against the sum of its entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mismatched, err := app.services.Engine.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(mismatched) == 0 {
			fmt.Println("All balances match their entries")
			return nil
		}
		common.PrintHeader("BALANCE MISMATCHES", common.DefaultWidth)
		for i, rec := range mismatched {
			fmt.Printf("%s %-20s stored %14s  entries %14s\n",
				common.BoxPrefix(i == len(mismatched)-1),
				rec.AccountId,
				common.FormatNaira(rec.StoredBalance),
				common.FormatNaira(rec.EntrySum))
		}
		return fmt.Errorf("%d accounts drifted from their entries", len(mismatched))
	},
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the business constants in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := app.services.Engine.Policy()
		common.PrintHeader("LEDGER POLICY", common.DefaultWidth)
		fmt.Printf("Welcome bonus:        %s\n", common.FormatNaira(p.WelcomeBonus))
		fmt.Printf("Referral bonus:       %s\n", common.FormatNaira(p.ReferralBonus))
		fmt.Printf("Activation fee:       %s (debited: %t)\n", common.FormatNaira(p.ActivationFee), p.ActivationFeeDebit)
		fmt.Printf("Withdrawal range:     %s - %s\n", common.FormatNaira(p.WithdrawalMin), common.FormatNaira(p.WithdrawalMax))
		fmt.Printf("Withdrawal fee:       %s\n", common.FormatNaira(p.WithdrawalFee))
		fmt.Printf("Require activation:   %t\n", p.RequireActivation)
		fmt.Printf("Time zone:            %s\n", p.Timezone)
		fmt.Println("Streak rewards:")
		for i, r := range p.StreakRewards {
			special := ""
			if r.IsSpecial {
				special = " *"
			}
			fmt.Printf("%s day %2d: %s%s %s\n", common.BoxPrefix(i == len(p.StreakRewards)-1),
				r.Day, common.FormatNaira(r.Total()), special, r.Description)
		}
		return nil
	},
}

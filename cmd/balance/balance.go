// Package balance shows a member's cached and recomputed balance
package balance

import (
	"fmt"

	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/internal/currencyutils"

	"github.com/spf13/cobra"
)

var memberID string

// Cmd represents the balance command
var Cmd = &cobra.Command{
	Use:   "balance",
	Short: "Show a member's balance",
	Long:  `Show the cached balance of a member next to the balance recomputed from the full ledger.`,
	RunE:  balanceFunc,
}

func init() {
	Cmd.Flags().StringVarP(&memberID, "member", "m", "", "Member ID")
	_ = Cmd.MarkFlagRequired("member")
}

func balanceFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	svc := app.GetService()
	m, err := svc.GetMember(cmd.Context(), memberID)
	if err != nil {
		return err
	}
	report, err := svc.RecomputeBalance(cmd.Context(), memberID)
	if err != nil {
		return err
	}

	currency := app.GetConfig().Ledger.Currency
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Member:     %s (%s)\n", m.Name, m.ID)
	fmt.Fprintf(w, "Cached:     %s\n", currencyutils.FormatAmount(report.Cached, currency))
	fmt.Fprintf(w, "Recomputed: %s\n", currencyutils.FormatAmount(report.Recomputed, currency))
	if !report.Drift.IsZero() {
		fmt.Fprintf(w, "Drift:      %s (run reconcile to fix)\n", currencyutils.FormatAmount(report.Drift, currency))
	}
	return nil
}

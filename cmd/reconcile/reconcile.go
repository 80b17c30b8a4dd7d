// Package reconcile rewrites cached balances from the ledger
package reconcile

import (
	"fmt"

	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/currencyutils"
	"fjacquet/teamkasse/internal/logging"

	"github.com/spf13/cobra"
)

var memberID string

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute cached balances",
	Long: `Recompute the cached balance and the debt counters of one member, or of all
members when --member is omitted, and correct any drift.`,
	RunE: reconcileFunc,
}

func init() {
	Cmd.Flags().StringVarP(&memberID, "member", "m", "", "Member ID (default: all members)")
}

func reconcileFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	svc := app.GetService()

	var results []*coordinator.Reconciliation
	if memberID != "" {
		r, err := svc.Reconcile(cmd.Context(), memberID)
		if err != nil {
			return err
		}
		results = append(results, r)
	} else {
		// only corrected members are returned
		all, err := svc.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}
		results = all
	}

	currency := app.GetConfig().Ledger.Currency
	w := cmd.OutOrStdout()
	corrected := 0
	for _, r := range results {
		if !r.Corrected {
			fmt.Fprintf(w, "%s (%s): no drift\n", r.Member.Name, r.Member.ID)
			continue
		}
		corrected++
		fmt.Fprintf(w, "%s (%s): drift %s corrected, balance %s\n",
			r.Member.Name, r.Member.ID, currencyutils.FormatAmount(r.Drift, currency), currencyutils.FormatAmount(r.Member.Balance, currency))
	}
	fmt.Fprintf(w, "%d members corrected\n", corrected)

	root.Log.Info("Reconciliation finished", logging.F("corrected", corrected))
	return nil
}

// Package member manages team members from the command line
package member

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/internal/currencyutils"
	"fjacquet/teamkasse/internal/service"

	"github.com/spf13/cobra"
)

var (
	nickname       string
	includeDeleted bool
)

// Cmd represents the member command
var Cmd = &cobra.Command{
	Use:   "member",
	Short: "Manage team members",
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a member",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := root.App().GetService().CreateMember(cmd.Context(), service.MemberInput{
			Name:     strings.Join(args, " "),
			Nickname: nickname,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created member %s (%s)\n", m.Name, m.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List members with their balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := root.App()
		members, err := app.GetService().ListMembers(cmd.Context(), includeDeleted)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tNICKNAME\tBALANCE\tSTATUS")
		currency := app.GetConfig().Ledger.Currency
		for _, m := range members {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Nickname, currencyutils.FormatAmount(m.Balance, currency), m.Status)
		}
		return tw.Flush()
	},
}

func init() {
	addCmd.Flags().StringVar(&nickname, "nickname", "", "Nickname (default: derived from the name)")
	listCmd.Flags().BoolVar(&includeDeleted, "all", false, "Include deleted members")
	Cmd.AddCommand(addCmd, listCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"fjacquet/teamkasse/cmd/balance"
	"fjacquet/teamkasse/cmd/importcmd"
	"fjacquet/teamkasse/cmd/member"
	"fjacquet/teamkasse/cmd/reconcile"
	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/cmd/serve"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(importcmd.Cmd)
	root.Cmd.AddCommand(balance.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(member.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
}

func main() {
	if err := root.Cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command x0xd is a thin demonstration binary wiring identity, the CRDT
// task-list engine, persistence, group encryption, and pub/sub together
// end to end. It is not a daemon or HTTP surface — each subcommand runs
// one self-contained scenario and exits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "x0xd"}
	rootCmd.AddCommand(identityCmd())
	rootCmd.AddCommand(demoCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"x0x/identity"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "identity"}

	show := &cobra.Command{
		Use:   "show",
		Short: "load or create the local machine identity and print its IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := identity.DefaultMachineKeyPath()
			if err != nil {
				return fmt.Errorf("resolve machine key path: %w", err)
			}

			kp, err := identity.LoadOrCreateMachineKey(path)
			if err != nil {
				return fmt.Errorf("load or create machine key: %w", err)
			}

			fmt.Printf("machine_key_path: %s\n", path)
			fmt.Printf("machine_id: %s\n", kp.MachineId())
			fmt.Printf("agent_id:   %s\n", kp.AgentId())
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}

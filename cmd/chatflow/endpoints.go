package main

import (
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/spf13/cobra"
)

// newEndpointsCmd creates the 'endpoints' subcommand.
func newEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints [operation]",
		Short: "Show the backend address of one or all operations",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				utils.Error("Failed to load config: %v", err)
				exit(2)
			}
			reg, err := cfg.Registry()
			if err != nil {
				utils.Error("Invalid endpoints: %v", err)
				exit(2)
			}
			if len(args) == 1 {
				url, err := reg.Resolve(args[0])
				if err != nil {
					utils.Error("%v", err)
					exit(1)
				}
				utils.User("%s", url)
				return
			}
			all := reg.All()
			for _, op := range endpoint.Operations() {
				utils.User("%-16s %s", op, all[op])
			}
		},
	}
}

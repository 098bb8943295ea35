package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/event"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/spf13/cobra"
)

var allContainers = []string{
	constants.ContainerWorkspaceID,
	constants.ContainerProjects,
	constants.ContainerCurrentProject,
	constants.ContainerBlockChats,
	constants.ContainerDocuments,
	constants.ContainerFileNames,
}

// newWatchCmd creates the 'watch' subcommand.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [container...]",
		Short: "Print store changes published by other sessions on the event bus",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				utils.Error("Failed to load config: %v", err)
				exit(2)
			}
			bus, err := event.NewEventBusFromConfig(&cfg.Event)
			if err != nil {
				utils.Error("Failed to connect event bus: %v", err)
				exit(2)
			}
			defer bus.Close()

			containers := args
			if len(containers) == 0 {
				containers = allContainers
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = event.Follow(ctx, bus, containers, func(c event.Change) {
				utils.User("%s", utils.MustMarshalJSON(c))
			})
			if err != nil {
				utils.Error("Failed to subscribe: %v", err)
				_ = bus.Close()
				exit(1)
			}
			<-ctx.Done()
		},
	}
}

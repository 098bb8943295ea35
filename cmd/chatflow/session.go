package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/spf13/cobra"
)

// newLoadCmd creates the 'load' subcommand.
func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "load [chat|workspace|documents|all]",
		Short:     "Load workspace data from the backend and print the session state",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{constants.LoaderTypeChat, constants.LoaderTypeWorkspace, constants.LoaderTypeDocuments, "all"},
		Run: func(cmd *cobra.Command, args []string) {
			what := "all"
			if len(args) == 1 {
				what = args[0]
			}
			app := mustApp()
			defer app.Close()
			ctx := cmd.Context()

			loaders := map[string]func(context.Context) error{
				constants.LoaderTypeChat: func(ctx context.Context) error {
					_, err := app.Client.LoadChats(ctx)
					return err
				},
				constants.LoaderTypeWorkspace: func(ctx context.Context) error {
					_, err := app.Client.LoadWorkspace(ctx)
					return err
				},
				constants.LoaderTypeDocuments: func(ctx context.Context) error {
					_, err := app.Client.LoadDocuments(ctx)
					return err
				},
			}
			var order []string
			switch what {
			case "all":
				order = []string{constants.LoaderTypeWorkspace, constants.LoaderTypeChat, constants.LoaderTypeDocuments}
			default:
				if _, ok := loaders[what]; !ok {
					fail(app, 1, "Unknown load type: %s", what)
				}
				order = []string{what}
			}
			for _, kind := range order {
				if err := loaders[kind](ctx); err != nil {
					fail(app, 1, "Failed to load %s: %v", kind, err)
				}
			}
			utils.User("%s", utils.PrettyJSON(app.Store.Snapshot()))
		},
	}
}

// newSaveCmd creates the 'save' subcommand.
func newSaveCmd() *cobra.Command {
	var file, id, name string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save flowchart data as a project of the workspace",
		Run: func(cmd *cobra.Command, args []string) {
			raw, err := os.ReadFile(file)
			if err != nil {
				fail(nil, 1, "Failed to read %s: %v", file, err)
			}
			var data model.FlowchartData
			if err := json.Unmarshal(raw, &data); err != nil {
				fail(nil, 1, "Invalid flowchart JSON: %v", err)
			}
			if len(data) == 0 {
				fail(nil, 1, "Flowchart in %s is empty", file)
			}
			app := mustApp()
			defer app.Close()
			saved, err := app.Client.SaveProject(cmd.Context(), model.Project{ID: id, Name: name, FlowchartData: data})
			if err != nil {
				fail(app, 1, "Failed to save project: %v", err)
			}
			utils.User("%s", saved.ID)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to flowchart JSON (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&id, "id", "", "Project id to overwrite (empty allocates a new one)")
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	return cmd
}

// newChatCmd creates the 'chat' subcommand.
func newChatCmd() *cobra.Command {
	var related []string
	cmd := &cobra.Command{
		Use:   "chat <block-id> <question...>",
		Short: "Ask a question in the chat of a block",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			app := mustApp()
			defer app.Close()
			ctx := cmd.Context()
			// Continue the block's message sequence.
			if _, err := app.Client.LoadChats(ctx); err != nil {
				utils.Warn("Could not load chat history: %v", err)
			}
			answer, err := app.Client.Generate(ctx, args[0], strings.Join(args[1:], " "), related...)
			if err != nil {
				fail(app, 1, "Generation failed: %v", err)
			}
			utils.User("%s", answer)
		},
	}
	cmd.Flags().StringSliceVar(&related, "related", nil, "Other block ids whose conversations may be used as context")
	return cmd
}

// newDeleteChatCmd creates the 'delete-chat' subcommand.
func newDeleteChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-chat <block-id>",
		Short: "Delete every conversation of a block",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app := mustApp()
			defer app.Close()
			n, err := app.Client.DeleteBlockChat(cmd.Context(), args[0])
			if err != nil {
				fail(app, 1, "Failed to delete chat: %v", err)
			}
			utils.User("Deleted %d conversation(s) for block %s", n, args[0])
		},
	}
}

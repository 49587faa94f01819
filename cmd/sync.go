package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Replace the remote table with the local libraries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.ws.Push(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Push completed")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local libraries with the remote table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.ws.Pull(cmd.Context()); err != nil {
			return err
		}
		libs, _, err := current.ws.Libraries(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pull completed: %d libraries\n", len(libs))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the last sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := current.ws.SyncStatus(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend:   %s\n", current.cfg.Backend)
		if st.LastSyncTime.IsZero() {
			fmt.Fprintln(out, "Last sync: never")
		} else {
			fmt.Fprintf(out, "Last sync: %s\n", st.LastSyncTime.Format(time.RFC3339))
		}
		if st.LastSyncStatus != "" {
			fmt.Fprintf(out, "Status:    %s\n", st.LastSyncStatus)
		}
		if st.LastSyncError != "" {
			fmt.Fprintf(out, "Error:     %s\n", st.LastSyncError)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd, pullCmd, statusCmd)
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/cli"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage customer sessions",
	Long: `List, inspect, reset and remove customer sessions in the configured store.
Only the file and redis drivers persist sessions between runs.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			ids, err := m.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sessions:")
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+id)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <phone>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			sess, err := m.Store().Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(sess, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <phone>...",
	Short: "Send sessions back to the main menu, keeping the customer profile",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			var errs []error
			for _, id := range args {
				if err := m.Reset(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("error resetting '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset session '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <phone>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(m *session.Manager) error {
			if all, _ := cmd.Flags().GetBool("all"); all {
				ids, err := m.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("error listing sessions: %w", err)
				}
				args = ids
			}
			var errs []error
			for _, id := range args {
				if err := m.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every session")
}

// withSessions opens the configured store and runs fn against a manager over it.
func withSessions(cmd *cobra.Command, fn func(*session.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := cli.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(session.NewManager(store, session.WithIdleTimeout(cfg.Conversation.IdleTimeout)))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/varsilias/webhook-chat/internal/buildinfo"
	"github.com/varsilias/webhook-chat/internal/exchange"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			msgs := a.store.All()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(msgs)
			}
			printTranscript(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the persisted JSON form")
	return cmd
}

func newClearCmd(flags *rootFlags) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if purge {
				if err := a.store.Purge(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", a.cfg.Storage.Key)
				return nil
			}
			a.chat.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the storage key instead of saving an empty transcript")
	return cmd
}

func newSelfTestCmd(flags *rootFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Send the connectivity probe to the webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), cmd, flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res := a.client.SelfTest(ctx)
			if err := exchange.AsError(res); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), describeFailure(res))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook reachable")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "probe timeout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuiltAt)
		},
	}
}

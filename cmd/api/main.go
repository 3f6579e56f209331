// Package main is the entry point for the Deep Shiva backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
)

// Set by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deep-shiva",
		Short:         "Deep Shiva conversational assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), personasCmd(), promptCmd(), configCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deep-shiva %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func personasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the available personas",
		Run: func(cmd *cobra.Command, _ []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tTITLE\tMAX QUESTIONS")
			fmt.Fprintf(tw, "%s\t%s\t%s\n", persona.None, "General assistant", "-")
			for _, profile := range persona.Seed() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", profile.Persona, profile.Title, profile.MaxQuestions)
			}
			_ = tw.Flush()
		},
	}
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system instruction composed for a persona",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tag, _ := cmd.Flags().GetString("persona")
			p, err := persona.Parse(tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ai.Compose(p))
			return nil
		},
	}
	cmd.Flags().StringP("persona", "p", "none", "Persona tag (none, travel, yoga, wellness, mental)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the environment configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "listen address:   %s\n", cfg.Server.Addr)
			fmt.Fprintf(out, "session ttl:      %s (sweep %q)\n", cfg.Server.SessionTTL, cfg.Server.SweepSchedule)
			fmt.Fprintf(out, "memory max turns: %d\n", cfg.Memory.MaxTurns)
			fmt.Fprintf(out, "ai provider:      %s\n", cfg.AI.ProviderName())

			if err := cfg.AI.Validate(); err != nil {
				var cfgErr *config.ConfigurationError
				if errors.As(err, &cfgErr) {
					for _, field := range cfgErr.Fields {
						fmt.Fprintf(out, "  %s: %s\n", cfgErr.Kind, field)
					}
				}
				return err
			}

			if connect, _ := cmd.Flags().GetBool("build-model"); connect {
				if _, err := cfg.AI.NewChatModel(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "chat model:       built")
			}

			fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}
	check.Flags().Bool("build-model", false, "Also construct the provider chat model")
	cmd.AddCommand(check)
	return cmd
}

// Package main is the minimal command-line entry point for the agent
// execution engine: enough wiring to create, resume, and inspect threads
// and the layered config stack from CODEX_HOME. It does not implement a
// model provider transport -- per §6's Non-goals, the concrete HTTP/SSE
// wire format is out of scope, so there is no `codex exec` turn-running
// command here. A collaborator wires internal/appserver's Dispatcher
// against a real transport and a concrete modelclient.Transport to get a
// full interactive engine; this entrypoint exercises everything below
// that boundary.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/codex-engine/codex/internal/approval"
	"github.com/codex-engine/codex/internal/config"
	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/skills"
	"github.com/codex-engine/codex/internal/threads"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "codex",
		Short:        "codex - agent execution engine",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildThreadCmd(), buildConfigCmd(), buildSkillCmd(), buildPolicyCmd())
	return root
}

func codexHome() (string, error) {
	if h := os.Getenv("CODEX_HOME"); h != "" {
		info, err := os.Stat(h)
		if err != nil {
			return "", fmt.Errorf("CODEX_HOME %s: %w", h, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("CODEX_HOME %s is not a directory", h)
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codex"), nil
}

func buildThreadCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "thread", Short: "create, resume, and inspect threads"}
	cmd.AddCommand(buildThreadNewCmd(), buildThreadResumeCmd(), buildThreadListCmd(), buildThreadSweepCmd())
	return cmd
}

func buildThreadSweepCmd() *cobra.Command {
	var schedule string
	var maxAge time.Duration
	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "archive threads older than --max-age, once or on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			mgr := threads.New(home)
			sweep, err := threads.NewRetentionSweep(mgr, schedule, maxAge)
			if err != nil {
				return err
			}
			if once {
				sweep.RunOnce()
				return nil
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			sweep.Start(ctx)
			<-ctx.Done()
			sweep.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "0 3 * * *", "cron expression for the sweep (standard 5-field or seconds-optional 6-field)")
	cmd.Flags().DurationVar(&maxAge, "max-age", 30*24*time.Hour, "archive threads whose session_meta timestamp is older than this")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep immediately instead of looping on --schedule")
	return cmd
}

func buildThreadNewCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "create a new thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			mgr := threads.New(home)
			h, err := mgr.NewThread(threads.Config{
				Cwd:        cwd,
				Originator: "codex-cli",
				CLIVersion: version,
				Source:     protocol.SourceCLI,
				Name:       name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Thread().ThreadID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "optional name to index this thread under")
	return cmd
}

func buildThreadResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <rollout-path>",
		Short: "resume a thread from its rollout file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			mgr := threads.New(home)
			h, result, err := mgr.ResumeThread(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "thread %s: %d item(s)\n", h.Thread().ThreadID, len(result.Items))
			return nil
		},
	}
}

func buildThreadListCmd() *cobra.Command {
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list threads by recency",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			mgr := threads.New(home)
			summaries, next, err := mgr.ListByRecency(limit, cursor)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Meta.ID, s.Path)
			}
			if next != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "next cursor: %s\n", next)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum threads to list")
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor from a previous call")
	return cmd
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "inspect the layered config stack"}
	cmd.AddCommand(buildConfigShowCmd(), buildConfigSetCmd())
	return cmd
}

func buildConfigShowCmd() *cobra.Command {
	var projectDir string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective config, deep-merged across all layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			stack, err := config.LoadStack(home, projectDir, map[string]any{}, map[string]any{})
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(stack.EffectiveConfig(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "project directory holding codex.toml, if any")
	return cmd
}

func buildConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-session <key> <value>",
		Short: "set a session-layer override and print the new effective value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			stack, err := config.LoadStack(home, "", map[string]any{}, map[string]any{})
			if err != nil {
				return err
			}
			value := parseScalar(args[1])
			if err := stack.SetLayer(config.LayerSession, map[string]any{args[0]: value}); err != nil {
				return err
			}
			encoded, err := json.Marshal(stack.EffectiveConfig())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	return cmd
}

func buildSkillCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "skill", Short: "discover skill bundles under CODEX_HOME/skills"}
	cmd.AddCommand(buildSkillListCmd())
	return cmd
}

func buildSkillListCmd() *cobra.Command {
	var workspace string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list skill bundles, honoring gating unless --all is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			if workspace == "" {
				if workspace, err = os.Getwd(); err != nil {
					return err
				}
			}
			stack, err := config.LoadStack(home, workspace, map[string]any{}, map[string]any{})
			if err != nil {
				return err
			}
			mgr, err := skills.NewManager(&skills.SkillsConfig{}, home, workspace, stack.EffectiveConfig())
			if err != nil {
				return err
			}
			if err := mgr.Discover(cmd.Context()); err != nil {
				return err
			}
			entries := mgr.ListEligible()
			if all {
				entries = mgr.ListAll()
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Name, e.Source, e.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace directory to scan for a skills/ dir (defaults to cwd)")
	cmd.Flags().BoolVar(&all, "all", false, "include skills that fail gating checks")
	return cmd
}

func buildPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "policy", Short: "inspect the exec policy loaded from rules/default.rules"}
	cmd.AddCommand(buildPolicyCheckCmd())
	return cmd
}

func buildPolicyCheckCmd() *cobra.Command {
	var rulesFile string
	cmd := &cobra.Command{
		Use:   "check -- <command> [args...]",
		Short: "evaluate a command against the default exec policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := codexHome()
			if err != nil {
				return err
			}
			if rulesFile == "" {
				rulesFile = approval.DefaultRulesPath(home)
			}
			rules, err := approval.LoadRulesFile(rulesFile)
			if err != nil {
				return err
			}
			policy := approval.NewExecPolicy(rules)
			decision, justification := policy.Evaluate(args)
			if justification != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", decision, justification)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), decision)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules-file", "", "override path to the exec policy rules file (default: CODEX_HOME/rules/default.rules)")
	return cmd
}

func parseScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

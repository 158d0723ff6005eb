// Package main provides the entry point for the ci-bridge CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sgaunet/bullets"
	"github.com/spf13/cobra"

	"github.com/sgaunet/ci-bridge/internal/labels"
	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/internal/security"
	"github.com/sgaunet/ci-bridge/internal/timeutil"
	"github.com/sgaunet/ci-bridge/internal/ui"
	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/orchestrator"
)

var (
	logLevel string
	log      *bullets.Logger

	optRepo        string
	optToken       string
	optDriver      string
	optCommitSHA   string
	optRmWatermark bool
)

var rootCmd = &cobra.Command{
	Use:   "ci-bridge",
	Short: "One CI automation API over GitHub, GitLab and Bitbucket",
	Long: `ci-bridge lets a pipeline post result comments and checks, publish
artifacts, manage self-hosted runners and open automated pull requests
through one uniform interface, whichever platform hosts the repository.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log = logger.NewLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"Set log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&optRepo, "repo", "",
		"Repository URL or owner/name slug (default: inferred from CI environment or git remote)")
	rootCmd.PersistentFlags().StringVar(&optToken, "token", "",
		"Platform access token (default: REPO_TOKEN, then provider-specific variables)")
	rootCmd.PersistentFlags().StringVar(&optDriver, "driver", "",
		"Platform driver: github, gitlab or bitbucket (default: inferred)")

	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(prCmd())
	rootCmd.AddCommand(runnerCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// API errors can echo the request, token included.
		fmt.Fprintf(os.Stderr, "Error: %v\n", security.SanitizeError(err))
		os.Exit(1)
	}
}

func newOrchestrator(opts orchestrator.Options) (*orchestrator.Orchestrator, error) {
	opts.Repo = optRepo
	opts.Token = optToken
	opts.Driver = optDriver
	opts.CommitSHA = optCommitSHA
	opts.RmWatermark = optRmWatermark

	orch, err := orchestrator.New(opts)
	if err != nil {
		return nil, err
	}
	orch.SetLogger(log)
	return orch, nil
}

// readBody resolves a report body from --body or --body-file.
func readBody(body, bodyFile string) (string, error) {
	if bodyFile == "" {
		return body, nil
	}

	data, err := os.ReadFile(bodyFile) // #nosec G304 - caller-chosen report file is the point
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}

func commentCmd() *cobra.Command {
	var body, bodyFile string

	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Post a result comment on a commit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			text, err := readBody(body, bodyFile)
			if err != nil {
				return err
			}

			orch, err := newOrchestrator(orchestrator.Options{})
			if err != nil {
				return err
			}

			url, err := orch.CommentCreate(context.Background(), text)
			if err != nil {
				return err
			}

			fmt.Println(url)
			return nil
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Comment body (markdown)")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the comment body from a file")
	cmd.Flags().StringVar(&optCommitSHA, "commit-sha", "", "Commit to comment on (default: CI sha, then local HEAD)")
	cmd.Flags().BoolVar(&optRmWatermark, "rm-watermark", false, "Do not append the watermark marker")

	return cmd
}

func checkCmd() *cobra.Command {
	var title, conclusion, body, bodyFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Create a commit check run (GitHub only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			summary, err := readBody(body, bodyFile)
			if err != nil {
				return err
			}

			orch, err := newOrchestrator(orchestrator.Options{})
			if err != nil {
				return err
			}

			url, err := orch.CheckCreate(context.Background(), driver.CheckOptions{
				Title:      title,
				Summary:    summary,
				Conclusion: conclusion,
				StartedAt:  time.Now(),
				EndedAt:    time.Now(),
			})
			if err != nil {
				return err
			}

			fmt.Println(url)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "CI report", "Check title")
	cmd.Flags().StringVar(&conclusion, "conclusion", "success", "Check conclusion (success, failure, neutral)")
	cmd.Flags().StringVar(&body, "body", "", "Check summary (markdown)")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the check summary from a file")
	cmd.Flags().StringVar(&optCommitSHA, "commit-sha", "", "Commit to check (default: CI sha, then local HEAD)")
	cmd.Flags().BoolVar(&optRmWatermark, "rm-watermark", false, "Do not append the watermark marker")

	return cmd
}

func publishCmd() *cobra.Command {
	var bucket, prefix string

	cmd := &cobra.Command{
		Use:   "publish <path>",
		Short: "Upload an artifact and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			orch, err := newOrchestrator(orchestrator.Options{Bucket: bucket, Prefix: prefix})
			if err != nil {
				return err
			}

			result, err := orch.Publish(context.Background(), args[0])
			if err != nil {
				return err
			}

			log.Infof("Published %s (%s, %d bytes)", result.URI, result.Mime, result.Size)
			fmt.Println(result.URI)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket for platforms without an upload endpoint")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix inside the bucket")

	return cmd
}

func prCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr [globs...]",
		Short: "Open an automated PR for changed files matching the globs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			orch, err := newOrchestrator(orchestrator.Options{})
			if err != nil {
				return err
			}

			result, err := orch.PRCreate(context.Background(), args)
			if err != nil {
				return err
			}

			if result.NoOp {
				log.Info("Nothing to do")
				return nil
			}
			fmt.Println(result.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&optCommitSHA, "commit-sha", "", "Commit the PR branch starts from (default: CI sha, then local HEAD)")

	return cmd
}

func runnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runner",
		Short: "Manage self-hosted runners",
	}
	cmd.AddCommand(runnerStartCmd())
	cmd.AddCommand(runnerUnregisterCmd())
	return cmd
}

func runnerStartCmd() *cobra.Command {
	var name, labelList, idleTimeout, workDir string
	var single bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Register and spawn a self-hosted runner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			timeout, err := timeutil.ParseTimeout(idleTimeout, 0)
			if err != nil {
				return err
			}

			orch, err := newOrchestrator(orchestrator.Options{})
			if err != nil {
				return err
			}

			started := time.Now()
			proc, err := orch.RunnerStart(context.Background(), driver.RunnerSpec{
				Name:        name,
				Labels:      labels.Parse(labelList),
				IdleTimeout: timeout,
				Single:      single,
				WorkDir:     workDir,
			})
			if err != nil {
				return err
			}

			// Surface normalized events until the process exits; the
			// runner itself is unmanaged after spawn.
			for event := range proc.Events {
				if event.Level == driver.LevelError {
					log.Warnf("runner %s: %s (job %s)", name, event.Status, event.Job)
					continue
				}
				log.Infof("runner %s: %s", name, event.Status)
			}

			if err := <-proc.Done; err != nil {
				return fmt.Errorf("runner exited: %w", err)
			}
			log.Infof("Runner exited cleanly after %s", timeutil.FormatDuration(time.Since(started)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", fmt.Sprintf("ci-bridge-%d", time.Now().Unix()), "Runner name")
	cmd.Flags().StringVar(&labelList, "labels", "", "Comma-separated runner labels")
	cmd.Flags().StringVar(&idleTimeout, "idle-timeout", "", "Idle timeout (duration or seconds)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Directory for the runner binary and workspace")
	cmd.Flags().BoolVar(&single, "single", false, "Exit after one job")

	return cmd
}

func runnerUnregisterCmd() *cobra.Command {
	var name string
	var yes bool

	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Delete a runner registration by name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			if !yes {
				confirmed, err := ui.NewConfirmer().Confirm(
					fmt.Sprintf("Unregister runner %q?", name))
				if err != nil {
					return err
				}
				if !confirmed {
					log.Info("Aborted")
					return nil
				}
			}

			orch, err := newOrchestrator(orchestrator.Options{})
			if err != nil {
				return err
			}

			return orch.RunnerUnregister(context.Background(), name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Runner name to unregister")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/cleanup"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/config"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/dispatch"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/export"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/platform"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/view"
)

func main() {
	// A local .env may carry tokens; absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runContext is the explicit per-invocation state passed into the core.
// There is no process-wide mutable equivalent.
type runContext struct {
	cfg       *config.Config
	channelID string
}

var (
	flagConfig   string
	flagChannel  string
	flagPlatform string

	flagAuthor   string
	flagContains string
	flagReverse  bool
	flagLimit    int
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrator",
		Short:         "Replay, filter and clean up archived chat exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.migrator/config.json)")
	root.PersistentFlags().StringVar(&flagChannel, "channel", "", "target channel ID")
	root.PersistentFlags().StringVar(&flagPlatform, "platform", "", "messaging platform (discord, telegram)")

	root.AddCommand(newRenderCmd(), newExtractCmd(), newPostCmd(), newCleanCmd(), newPurgeCmd())
	return root
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagAuthor, "author", "", "only messages from this author (name or handle)")
	cmd.Flags().StringVar(&flagContains, "contains", "", "only messages containing this text")
	cmd.Flags().BoolVar(&flagReverse, "reverse", false, "newest first")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "stop after this many messages")
}

func newRenderCmd() *cobra.Command {
	var (
		width   int
		noColor bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "render [export-file]",
		Short: "Format an export locally, no network access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := buildRunContext(false)
			if err != nil {
				return err
			}
			records, err := loadFiltered(rc.cfg, args)
			if err != nil {
				return err
			}
			out := os.Stdout
			useColor := !noColor && rc.cfg.Render.Color
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
				useColor = false
			}
			if width <= 0 {
				width = rc.cfg.Render.Width
			}
			return view.Render(out, records, view.Options{Width: width, Color: useColor})
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().IntVar(&width, "width", 0, "wrap column")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "extract [export-file]",
		Short: "Write a filtered subset back out as an export file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := buildRunContext(false)
			if err != nil {
				return err
			}
			records, err := loadFiltered(rc.cfg, args)
			if err != nil {
				return err
			}
			if err := export.Save(outPath, records); err != nil {
				return err
			}
			fmt.Printf("Wrote %d messages to %s\n", len(records), outPath)
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "filtered.json", "output file")
	return cmd
}

func newPostCmd() *cobra.Command {
	var (
		rate        float64
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "post [export-file]",
		Short: "Replay an export into the target channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := buildRunContext(true)
			if err != nil {
				return err
			}
			records, err := loadFiltered(rc.cfg, args)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return errors.New("no messages to post after filtering")
			}

			cap, err := openPlatform(rc.cfg)
			if err != nil {
				return err
			}
			defer cap.Close()

			if rate <= 0 {
				rate = rc.cfg.Transfer.Rate
			}
			if maxAttempts <= 0 {
				maxAttempts = rc.cfg.Transfer.MaxAttempts
			}

			jobs := dispatch.SendJobs(records, cap.MaxMessageLength())
			fmt.Printf("Found %d messages. Posting them now...\n", len(jobs))
			fmt.Printf("Estimated time to completion: %s\n",
				(time.Duration(float64(len(jobs)) / rate * float64(time.Second))).Round(time.Second))

			return runBatch(cmd.Context(), cap, rc, jobs, rate, maxAttempts)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Float64Var(&rate, "rate", 0, "messages per second")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "retry budget per message")
	return cmd
}

func newCleanCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete this bot's own previous messages in the channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := buildRunContext(true)
			if err != nil {
				return err
			}
			cap, err := openPlatform(rc.cfg)
			if err != nil {
				return err
			}
			defer cap.Close()

			planner := &cleanup.Planner{
				Capability:  cap,
				ChannelID:   rc.channelID,
				MaxMessages: depth,
			}
			jobs, err := planner.Plan(cmd.Context(), cleanup.OnlySelf(cap))
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("Nothing to clean up.")
				return nil
			}
			fmt.Printf("Deleting %d of this bot's messages...\n", len(jobs))
			return runBatch(cmd.Context(), cap, rc, jobs, rc.cfg.Transfer.Rate, rc.cfg.Transfer.MaxAttempts)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "max history messages to scan (default 500)")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete ALL messages in the channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("purge deletes every message in the channel; re-run with --yes to confirm")
			}
			rc, err := buildRunContext(true)
			if err != nil {
				return err
			}
			cap, err := openPlatform(rc.cfg)
			if err != nil {
				return err
			}
			defer cap.Close()

			planner := &cleanup.Planner{
				Capability:  cap,
				ChannelID:   rc.channelID,
				MaxMessages: -1,
			}
			jobs, err := planner.Plan(cmd.Context(), cleanup.Everything)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("Channel is already empty.")
				return nil
			}
			fmt.Printf("Deleting %d messages...\n", len(jobs))
			return runBatch(cmd.Context(), cap, rc, jobs, rc.cfg.Transfer.Rate, rc.cfg.Transfer.MaxAttempts)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting everything")
	return cmd
}

// runBatch wires a job sequence through the dispatcher with console
// progress reporting and prints the run summary.
func runBatch(parent context.Context, cap platform.Capability, rc *runContext, jobs []dispatch.Job, rate float64, maxAttempts int) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dispatch.New(cap, rc.channelID, dispatch.Options{
		Rate:        rate,
		MaxAttempts: maxAttempts,
		OnProgress:  progressPrinter(),
		OnJobError: func(job dispatch.Job, err error) {
			fmt.Fprintf(os.Stderr, "failed %s #%d: %v\n", job.Op, job.Seq, err)
		},
	})
	res := d.Run(ctx, jobs)

	switch {
	case res.Aborted:
		fmt.Printf("Run aborted: %d succeeded, %d failed, %d untried.\n",
			res.Succeeded, len(res.Failed), len(jobs)-res.Succeeded-len(res.Failed))
		return errors.New("run aborted")
	case len(res.Failed) > 0:
		fmt.Printf("Finished with %d succeeded, %d failed.\n", res.Succeeded, len(res.Failed))
		return fmt.Errorf("%d operations failed", len(res.Failed))
	default:
		color.Green("Finished: all %d operations succeeded.", res.Succeeded)
		return nil
	}
}

// progressPrinter reports to the console every 20 settled jobs, every 30
// seconds, and on the final job, like the original replayer did.
func progressPrinter() func(dispatch.Progress) {
	var lastUpdate time.Time
	return func(p dispatch.Progress) {
		final := p.Completed == p.Total
		if !final && p.Completed%20 != 0 && time.Since(lastUpdate) < 30*time.Second {
			return
		}
		lastUpdate = time.Now()
		pct := 0.0
		if p.Total > 0 {
			pct = float64(p.Completed) / float64(p.Total) * 100
		}
		fmt.Printf("Posted %d/%d (%.1f%%, %.1f ops/sec)\n", p.Completed, p.Total, pct, p.Rate)
		if !final {
			fmt.Printf("Estimated time remaining: %s (ETA %s)\n",
				p.Remaining.Round(time.Second), time.Now().Add(p.Remaining).Format("15:04:05"))
		}
	}
}

// buildRunContext assembles the explicit run state from config and flags.
// needChannel guards the network commands.
func buildRunContext(needChannel bool) (*runContext, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flagPlatform != "" {
		cfg.Platform = flagPlatform
	}
	channelID := flagChannel
	if channelID == "" {
		channelID = cfg.ChannelID
	}
	if needChannel && channelID == "" {
		return nil, errors.New("no channel ID: pass --channel or set channelId in the config")
	}
	return &runContext{cfg: cfg, channelID: channelID}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		// A missing default config file is fine; an explicit --config
		// path that does not exist is not.
		if flagConfig == "" && errors.Is(err, os.ErrNotExist) {
			slog.Debug("config: no config file, using defaults and environment")
			return config.FromEnv(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func loadFiltered(cfg *config.Config, args []string) ([]export.Record, error) {
	path := cfg.ExportFile
	if len(args) > 0 {
		path = args[0]
	}
	records, err := export.LoadFile(path)
	if err != nil {
		return nil, err
	}
	records = export.Sort(records)
	records = view.Filter(records, view.Criteria{Author: flagAuthor, Contains: flagContains})
	if flagReverse {
		records = view.Reverse(records)
	}
	return view.Limit(records, flagLimit), nil
}

func openPlatform(cfg *config.Config) (platform.Capability, error) {
	name, raw, err := cfg.PlatformConfig()
	if err != nil {
		return nil, err
	}
	return platform.Open(name, raw)
}

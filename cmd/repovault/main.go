package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/repovault/internal/adapters/alert"
	"github.com/bft-labs/repovault/internal/adapters/fs"
	"github.com/bft-labs/repovault/internal/adapters/githubapi"
	"github.com/bft-labs/repovault/internal/adapters/gitmirror"
	"github.com/bft-labs/repovault/internal/adapters/s3store"
	"github.com/bft-labs/repovault/internal/app"
	"github.com/bft-labs/repovault/internal/cliconfig"
	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/internal/schedule"
	"github.com/bft-labs/repovault/internal/state"
	"github.com/bft-labs/repovault/pkg/log"
)

const longHelp = `repovault mirrors every repository of a GitHub organization or user into
S3-compatible storage: git bundles, wikis, and metadata exports (issues,
pull requests, releases), with incremental change detection and per-repository
retention.

Configuration precedence: flags > environment > config file > defaults.`

var exampleUsage = strings.TrimSpace(`
  repovault run --owner acme --bucket backups --s3-endpoint http://minio:9000
  repovault serve --config /etc/repovault/config.toml
  repovault list --owner acme --bucket backups
  repovault prune --owner acme --bucket backups --retention-count 5
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	zl := cliconfig.Logger()

	// resolve layers file, env and flag configuration in precedence order.
	resolve := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		zl = cliconfig.LoggerAt(cfg.LogLevel)
		logCfg := cfg
		if logCfg.Token != "" {
			logCfg.Token = "*****"
		}
		if logCfg.S3SecretKey != "" {
			logCfg.S3SecretKey = "*****"
		}
		if logCfg.SMTPPassword != "" {
			logCfg.SMTPPassword = "*****"
		}
		zl.Debug().Interface("config", logCfg).Msg("configuration")
		return nil
	}

	root := &cobra.Command{
		Use:     "repovault",
		Short:   "Back up GitHub repositories to S3-compatible storage",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one backup run and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			coord, _, err := buildCoordinator(ctx, cfg)
			if err != nil {
				return err
			}
			summary, err := coord.Run(ctx)
			if err != nil {
				return err
			}
			if summary.Level() == domain.AlertError {
				return fmt.Errorf("run failed: %d of %d repositories not captured",
					summary.Failed, summary.Total)
			}
			return nil
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			if !cfg.ScheduleEnabled {
				return fmt.Errorf("serve requires schedule.enabled")
			}
			ctx, stop := signalContext()
			defer stop()

			return serve(ctx, cfgPath, cfg)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the snapshots present in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			return list(ctx, cfg)
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply retention without taking new snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			return prune(ctx, cfg)
		},
	}

	for _, cmd := range []*cobra.Command{runCmd, serveCmd, listCmd, pruneCmd} {
		f := cmd.Flags()
		f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.repovault/config.toml)")
		f.StringVar(&cfg.Owner, "owner", cfg.Owner, "GitHub organization or username to back up")
		f.StringVar(&cfg.Token, "token", cfg.Token, "GitHub personal access token (or GITHUB_PAT)")
		f.BoolVar(&cfg.IncludePrivate, "private", cfg.IncludePrivate, "include private repositories")
		f.BoolVar(&cfg.IncludeForks, "forks", cfg.IncludeForks, "include forked repositories")
		f.BoolVar(&cfg.IncludeArchived, "archived", cfg.IncludeArchived, "include archived repositories")

		f.IntVar(&cfg.RetentionCount, "retention-count", cfg.RetentionCount, "snapshots to keep per repository (the most recent is always kept)")
		f.BoolVar(&cfg.IncludeMetadata, "metadata", cfg.IncludeMetadata, "export issues, pull requests and releases")
		f.BoolVar(&cfg.IncludeWiki, "wiki", cfg.IncludeWiki, "capture wiki repositories")
		f.BoolVar(&cfg.Incremental, "incremental", cfg.Incremental, "skip repositories unchanged since the last run")
		f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent repository captures")
		f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "local directory for state and scratch clones")

		f.StringVar(&cfg.S3EndpointURL, "s3-endpoint", cfg.S3EndpointURL, "S3 endpoint URL (empty for AWS)")
		f.StringVar(&cfg.S3Bucket, "bucket", cfg.S3Bucket, "target bucket")
		f.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
		f.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
		f.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
		f.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "key prefix within the bucket")

		f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

		root.AddCommand(cmd)
	}

	if err := root.Execute(); err != nil {
		zl.Error().Err(err).Msg("repovault")
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// buildCoordinator wires a Coordinator and its state store from the resolved
// configuration.
func buildCoordinator(ctx context.Context, cfg cliconfig.Config) (*app.Coordinator, *state.Store, error) {
	zl := cliconfig.LoggerAt(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)

	store, err := s3store.New(ctx, s3store.Config{
		EndpointURL:        cfg.S3EndpointURL,
		Bucket:             cfg.S3Bucket,
		AccessKey:          cfg.S3AccessKey,
		SecretKey:          cfg.S3SecretKey,
		Region:             cfg.S3Region,
		ForcePathStyle:     cfg.S3ForcePathStyle,
		MultipartThreshold: cfg.S3MultipartThreshold,
		PartSize:           cfg.S3MultipartChunkSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("object store: %w", err)
	}

	provider := githubapi.New(githubapi.Config{
		Owner:           cfg.Owner,
		Token:           cfg.Token,
		IncludePrivate:  cfg.IncludePrivate,
		IncludeForks:    cfg.IncludeForks,
		IncludeArchived: cfg.IncludeArchived,
	}, logger)

	states := state.New(
		fs.NewStateFile(filepath.Join(cfg.DataDir, cfg.Owner)),
		store,
		domain.StateKey(cfg.S3Prefix, cfg.Owner),
		logger,
	)

	pipeline := app.NewPipeline(provider, gitmirror.New(logger), store, app.PipelineConfig{
		Prefix:          cfg.S3Prefix,
		WorkDir:         cfg.DataDir,
		IncludeMetadata: cfg.IncludeMetadata,
		IncludeWiki:     cfg.IncludeWiki,
		UploadRetries:   cfg.UploadRetries,
	}, logger)

	coord := app.NewCoordinator(
		provider,
		store,
		states,
		app.NewDetector(cfg.Incremental),
		pipeline,
		app.NewPlanner(store, cfg.S3Prefix, cfg.Owner, cfg.RetentionCount, logger),
		buildNotifier(cfg, logger),
		app.CoordinatorConfig{
			Owner:   cfg.Owner,
			Prefix:  cfg.S3Prefix,
			Workers: cfg.Workers,
		},
		logger,
	)
	return coord, states, nil
}

// buildNotifier assembles the alert channels, or nil when alerting is off.
func buildNotifier(cfg cliconfig.Config, logger log.Logger) app.Notifier {
	if !cfg.AlertEnabled {
		return nil
	}

	var channels []ports.Alerter
	for _, name := range cfg.AlertChannelList() {
		switch name {
		case "webhook":
			if cfg.WebhookURL != "" {
				channels = append(channels, alert.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret, nil))
			}
		case "teams":
			if cfg.TeamsWebhookURL != "" {
				channels = append(channels, alert.NewTeams(cfg.TeamsWebhookURL, nil))
			}
		case "email":
			if cfg.SMTPHost != "" {
				channels = append(channels, alert.NewEmail(alert.EmailConfig{
					Host:     cfg.SMTPHost,
					Port:     cfg.SMTPPort,
					Username: cfg.SMTPUser,
					Password: cfg.SMTPPassword,
					From:     cfg.SMTPFrom,
					To:       cfg.SMTPRecipients(),
				}))
			}
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return alert.NewManager(alert.Policy(cfg.AlertLevel), channels, logger)
}

// serve runs the scheduler loop with dynamic configuration reload.
func serve(ctx context.Context, cfgPath string, cfg cliconfig.Config) error {
	zl := cliconfig.LoggerAt(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	watcher := cliconfig.NewWatcher(cfgFile, cfg, logger)
	if cliconfig.FileExists(cfgFile) {
		go watcher.Run(ctx)
	}

	// The completion watermark survives restarts through the state file.
	_, states, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := states.Load(ctx)
	if err != nil {
		return err
	}

	specFn := func() schedule.Spec {
		c := watcher.Snapshot()
		return schedule.Spec{
			Mode:          c.ScheduleMode,
			Hour:          c.ScheduleHour,
			Minute:        c.ScheduleMinute,
			DayOfWeek:     c.ScheduleDayOfWeek,
			IntervalHours: c.ScheduleIntervalHours,
		}
	}
	runFn := func(ctx context.Context) (domain.RunSummary, error) {
		// Rebuild per run so dynamic tunables (workers, retention,
		// metadata and wiki toggles) take effect.
		c, _, err := buildCoordinator(ctx, watcher.Snapshot())
		if err != nil {
			return domain.RunSummary{}, err
		}
		return c.Run(ctx)
	}

	svc := app.NewService(specFn, runFn, st.LastRunAt, logger)
	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// list prints every repository in the store with its snapshots.
func list(ctx context.Context, cfg cliconfig.Config) error {
	store, err := s3store.New(ctx, s3store.Config{
		EndpointURL:    cfg.S3EndpointURL,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Region:         cfg.S3Region,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		return err
	}

	repos, err := store.ListDirs(ctx, domain.OwnerPrefix(cfg.S3Prefix, cfg.Owner)+"/")
	if err != nil {
		return err
	}
	sort.Strings(repos)

	for _, repo := range repos {
		ids, err := store.ListDirs(ctx, domain.RepoPrefix(cfg.S3Prefix, cfg.Owner, repo))
		if err != nil {
			return err
		}
		sort.Sort(sort.Reverse(sort.StringSlice(ids)))

		size, err := store.Size(ctx, domain.RepoPrefix(cfg.S3Prefix, cfg.Owner, repo))
		if err != nil {
			return err
		}
		fmt.Printf("%s/%s  %d snapshot(s)  %d bytes\n", cfg.Owner, repo, len(ids), size)
		for _, id := range ids {
			if ts, err := domain.ParseBackupID(id); err == nil {
				fmt.Printf("  %s  (%s)\n", id, ts.Format(time.RFC3339))
			}
		}
	}
	return nil
}

// prune applies retention without taking new snapshots.
func prune(ctx context.Context, cfg cliconfig.Config) error {
	zl := cliconfig.LoggerAt(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)

	store, err := s3store.New(ctx, s3store.Config{
		EndpointURL:    cfg.S3EndpointURL,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Region:         cfg.S3Region,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		return err
	}

	states := state.New(
		fs.NewStateFile(filepath.Join(cfg.DataDir, cfg.Owner)),
		store,
		domain.StateKey(cfg.S3Prefix, cfg.Owner),
		logger,
	)
	st, err := states.Load(ctx)
	if err != nil {
		return err
	}

	planner := app.NewPlanner(store, cfg.S3Prefix, cfg.Owner, cfg.RetentionCount, logger)
	repos, err := store.ListDirs(ctx, domain.OwnerPrefix(cfg.S3Prefix, cfg.Owner)+"/")
	if err != nil {
		return err
	}
	sort.Strings(repos)

	protected := st.BackedUpRepos()
	total := 0
	for _, repo := range repos {
		decision, err := planner.Plan(ctx, repo, protected[cfg.Owner+"/"+repo])
		if err != nil {
			return err
		}
		n, err := planner.Apply(ctx, decision)
		total += n
		if err != nil {
			return err
		}
	}
	fmt.Printf("pruned %d snapshot(s)\n", total)
	return nil
}

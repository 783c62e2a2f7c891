package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"todo-web/api"
	"todo-web/config"
	"todo-web/domain"
	"todo-web/logging"
	"todo-web/storage"
	"todo-web/view"
)

const shutdownTimeout = 10 * time.Second

type rootFlags struct {
	configFile string
	envFile    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "todo-web",
		Short:         "Web front end for a personal task list",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(flags), newListCmd(flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var status, category, priority string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(flags, nil)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if _, err := env.view.FetchAndRender(ctx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			page := env.view.Render(domain.ParseFilter(status, category, priority))
			return printPage(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "all, active or completed")
	cmd.Flags().StringVar(&category, "category", "", "case-insensitive category substring")
	cmd.Flags().StringVar(&priority, "priority", "", "priority 1, 2 or 3")
	return cmd
}

// environment is everything both commands build from configuration.
type environment struct {
	cfg    *config.Config
	logger *log.Logger
	view   *view.View
	redis  *redis.Client
	closer io.Closer
}

func (e *environment) close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			e.logger.WithError(err).Warn("close redis")
		}
	}
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func setup(flags *rootFlags, reg prometheus.Registerer) (*environment, error) {
	cfg, err := config.Load(config.Options{ConfigFile: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		return nil, err
	}

	logger := log.New()
	closer, err := logging.Setup(logger, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Debug:  flags.debug,
	})
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, logger: logger, closer: closer}

	loc, err := cfg.Location()
	if err != nil {
		env.close()
		return nil, err
	}

	client, err := storage.New(storage.Options{
		BaseURL:     cfg.Upstream.BaseURL,
		Token:       cfg.Upstream.Token,
		Timeout:     cfg.Upstream.Timeout,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Registerer:  reg,
		Logger:      logger,
	})
	if err != nil {
		env.close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	opts := []view.Option{view.WithLocation(loc), view.WithLogger(logger)}
	var tasks view.TaskAPI = client
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("redis.url: %w", err)
		}
		env.redis = redis.NewClient(redisOpts)
		tasks = storage.NewCache(client, env.redis, cfg.Redis.TTL)
		opts = append(opts, view.WithDeduper(api.NewRedisDeduper(env.redis, cfg.Dedupe.TTL)))
		logger.WithFields(log.Fields{"addr": redisOpts.Addr, "ttl": cfg.Redis.TTL}).Info("redis cache enabled")
	}
	env.view = view.New(tasks, opts...)
	return env, nil
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	env, err := setup(flags, reg)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer env.close()

	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	e := api.NewServer(env.view, api.ServerOptions{
		Renderer:  renderer,
		Registry:  reg,
		Logger:    env.logger,
		RateLimit: env.cfg.Rate.Limit,
		RateBurst: env.cfg.Rate.Burst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		env.logger.WithField("listen", env.cfg.Listen).Info("todo-web listening")
		errCh <- e.Start(env.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.logger.WithError(err).Error("server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	env.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// printPage writes one line per task followed by the statistics.
func printPage(w io.Writer, page view.Page) error {
	var b strings.Builder
	if page.Empty {
		b.WriteString("No tasks found\n")
	}
	for _, item := range page.Items {
		b.WriteString(formatItem(item))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "total %d, active %d, completed %d\n",
		page.Stats.Total, page.Stats.Active, page.Stats.Completed)
	_, err := io.WriteString(w, b.String())
	return err
}

func formatItem(item view.Item) string {
	mark := " "
	if item.Task.Done() {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] #%d %s (%s)", mark, item.Task.ID, item.Task.Title, item.Task.Priority.Label())
	if category := item.Task.CategoryText(); category != "" {
		line += " [" + category + "]"
	}
	if item.HasDue {
		line += " due " + item.Due.Formatted
		if item.Due.Label != domain.DueNone {
			line += " (" + string(item.Due.Label) + ")"
		}
	}
	return line
}

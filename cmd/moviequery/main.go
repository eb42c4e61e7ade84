// Package main provides the moviequery CLI: an HTTP server, a one-shot
// question command and a Redis queue worker.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/config"
	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/health"
	"github.com/zero-day-ai/moviequery/queue"
	"github.com/zero-day-ai/moviequery/queue/worker"
	"github.com/zero-day-ai/moviequery/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "moviequery",
		Short: "Answer natural-language questions about a movie graph",
		Long: `moviequery translates questions into Cypher with a language model,
runs them against a Neo4j movie graph and phrases the rows as an answer.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to moviequery.yaml or a directory containing it")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moviequery v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().Bool("async", false, "Submit through the Redis queue and wait for a worker")
	askCmd.Flags().Bool("json", false, "Print the full pipeline state as JSON")
	rootCmd.AddCommand(askCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "worker",
		Short: "Consume questions from the Redis queue",
		RunE:  runWorker,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the graph schema summary given to the model",
		RunE:  runSchema,
	})

	return rootCmd
}

// setup loads configuration and builds the logger from the persistent flags.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	path, _ := cmd.Flags().GetString("config")

	logger, err := newLogger(cmd.ErrOrStderr(), format, level)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithHealthCheck("neo4j", health.PingCheck("neo4j", a.store, health.StatusUnhealthy)),
		server.WithHealthCheck("llm", degrade(health.EndpointCheck(cfg.LLM.BaseURL))),
	}

	images, err := newImageGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if images != nil {
		opts = append(opts, server.WithImageGenerator(images))
	}

	if queueClient, err := newQueueClient(cfg); err != nil {
		logger.Warn("redis queue unavailable", "error", err)
	} else {
		defer moviequery.CloseWithLog(queueClient, logger, "redis client")
		opts = append(opts, server.WithHealthCheck("redis", queueCheck(queueClient)))
	}

	srv, err := server.New(a.pipeline, registry, opts...)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.GetShutdownTimeout())
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	question := strings.Join(args, " ")
	async, _ := cmd.Flags().GetBool("async")
	asJSON, _ := cmd.Flags().GetBool("json")

	if async {
		return askAsync(ctx, cmd, cfg, logger, question)
	}

	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	state, err := a.pipeline.Run(ctx, question)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	fmt.Fprintln(cmd.OutOrStdout(), state.Answer)
	return nil
}

func askAsync(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, question string) error {
	client, err := newQueueClient(cfg)
	if err != nil {
		return err
	}
	defer moviequery.CloseWithLog(client, logger, "redis client")

	timeout := cfg.Worker.GetResultTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	result, err := queue.Ask(ctx, client, cfg.Queue.Name, question)
	if err != nil {
		return err
	}
	logger.Debug("queued question answered",
		"job_id", result.JobID,
		"worker_id", result.WorkerID,
		"wait", time.Since(started))

	if result.HasError() {
		return moviequery.NewExecutionError("ask", fmt.Errorf("worker %s: %s", result.WorkerID, result.Error))
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	client, err := newQueueClient(cfg)
	if err != nil {
		return err
	}
	defer moviequery.CloseWithLog(client, logger, "redis client")

	if err := client.Ping(ctx); err != nil {
		return moviequery.NewNetworkError("worker", err)
	}

	w := worker.New(client, a.pipeline, worker.Options{
		Queue:             cfg.Queue.Name,
		Concurrency:       cfg.Worker.GetConcurrency(),
		ShutdownTimeout:   cfg.Worker.GetShutdownTimeout(),
		HeartbeatInterval: cfg.Worker.GetHeartbeatInterval(),
		Logger:            logger,
		Tracer:            a.tracer,
	})
	return w.Run(ctx)
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Neo4j.Validate(); err != nil {
		return err
	}

	store, err := graphstore.NewNeo4jStore(cfg.Neo4j, graphstore.WithLogger(logger))
	if err != nil {
		return err
	}
	defer moviequery.CloseContextWithLog(context.WithoutCancel(ctx), store, logger, "neo4j store")

	fmt.Fprintln(cmd.OutOrStdout(), graphstore.NewIntrospector(store, logger).Introspect(ctx))
	return nil
}

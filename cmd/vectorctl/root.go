package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/console"
	"github.com/fyrsmithlabs/vectorctl/internal/embeddings"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/pipeline"
	"github.com/fyrsmithlabs/vectorctl/internal/telemetry"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/vectorctl"
	deleteAllNoOpt      = "true"
)

// app holds the process-level dependencies of a run. The constructors are
// fields so tests can swap in local backends.
type app struct {
	stdout io.Writer
	stderr io.Writer

	newStore    func(ctx context.Context, cfg config.Config, opts ...vectorstore.StoreOption) (vectorstore.IndexStore, error)
	newEmbedder func(cfg config.EmbeddingsConfig, opts ...embeddings.Option) (embeddings.Provider, error)

	configFile string
	envFile    string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:      stdout,
		stderr:      stderr,
		newStore:    vectorstore.NewStore,
		newEmbedder: embeddings.NewProvider,
	}
}

// rootFlags are the action flags of the root command.
type rootFlags struct {
	load      string
	deleteAll string
	query     string
	topK      int
}

func newRootCmd(a *app) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "vectorctl",
		Short: "Vector index management tool",
		Long: `vectorctl makes sure a vector index exists and then optionally ingests a
document into it, deletes every vector in it, or queries it.

The index is created when missing (cosine metric, 1536 dimensions unless
configured otherwise). --load, --delete_all and --query are mutually
exclusive; with none of them the run only provisions the index.

Examples:
  # Provision the index configured by PINECODE_INDEX
  vectorctl

  # Split a file into chunks, embed them and store them
  vectorctl -l ./notes.md

  # Delete every vector; the index itself stays
  vectorctl -d

  # Print the 5 chunks closest to a question
  vectorctl -q "what is a namespace?" -k 5`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.bindDeleteValue(cmd, args); err != nil {
				return err
			}
			return a.run(cmd.Context(), f.command(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default ~/.config/vectorctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file (default: nearest .env from the working directory up)")

	cmd.Flags().StringVarP(&f.load, "load", "l", "", "file to split, embed and store")
	cmd.Flags().StringVarP(&f.deleteAll, "delete_all", "d", "", "delete every vector in the index when true")
	cmd.Flags().Lookup("delete_all").NoOptDefVal = deleteAllNoOpt
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "text to search the index for")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", pipeline.DefaultTopK, "number of results for --query")
	cmd.MarkFlagsMutuallyExclusive("load", "delete_all", "query")

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.AddCommand(newStatsCmd(a), newVersionCmd(a))
	return cmd
}

// bindDeleteValue accepts "--delete_all VALUE" as well as "--delete_all=VALUE"
// and a bare "--delete_all". pflag cannot tell the first form from a bare
// flag followed by a positional argument, so the argument is taken back here.
func (f *rootFlags) bindDeleteValue(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if !cmd.Flags().Changed("delete_all") || f.deleteAll != deleteAllNoOpt {
		return fmt.Errorf("unexpected argument %q", args[0])
	}
	f.deleteAll = args[0]
	return nil
}

// command builds the single command selected by the flags.
func (f rootFlags) command(cmd *cobra.Command) pipeline.Command {
	switch {
	case cmd.Flags().Changed("load"):
		return pipeline.Ingest{Path: f.load}
	case cmd.Flags().Changed("query"):
		return pipeline.Query{Text: f.query, TopK: f.topK}
	case truthy(f.deleteAll):
		return pipeline.DeleteAll{}
	default:
		return pipeline.Provision{}
	}
}

// truthy reports whether a --delete_all value requests deletion.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no", "n", "off":
		return false
	default:
		return true
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Provision the index like any other run, then print its dimension, metric,
vector count and readiness. With a Pinecone namespace configured the count is
for that namespace.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), pipeline.Stats{})
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "vectorctl by Fyrsmith Labs\n")
			fmt.Fprintf(a.stdout, "Version:    %s\n", version)
			fmt.Fprintf(a.stdout, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

// run loads configuration, builds every dependency and executes c.
func (a *app) run(ctx context.Context, c pipeline.Command) error {
	reporter := console.New(a.stdout)
	reporter.Banner()

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.OTEL, version))
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background()) // Best-effort flush
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	if degraded, cause := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry export unavailable", zap.Error(cause))
	}

	embedder, err := a.newEmbedder(cfg.Embeddings,
		embeddings.WithLogger(logger),
		embeddings.WithMetrics(embeddings.NewMetrics(tel.Meter(instrumentationName), logger)),
	)
	if err != nil {
		return pipeline.Categorize("creating embedder", err)
	}
	defer embedder.Close()

	store, err := a.newStore(ctx, cfg, vectorstore.WithLogger(logger))
	if err != nil {
		return pipeline.Categorize("connecting to "+cfg.VectorStore.Provider, err)
	}
	defer store.Close()

	runner, err := pipeline.NewRunner(cfg, store, embedder,
		pipeline.WithReporter(reporter),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(tel.Tracer(instrumentationName)),
		pipeline.WithMeter(tel.Meter(instrumentationName)),
	)
	if err != nil {
		return err
	}

	if _, err := runner.Run(ctx, c); err != nil {
		logger.Debug(ctx, "run failed", zap.String("command", c.Name()), zap.Error(err))
		return err
	}
	reporter.End()
	return nil
}

// initLogger builds the stderr logger, bridged to OTEL when export is on.
func initLogger(cfg config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lcfg, err := logging.FromAppConfig(cfg.Log, tel.Enabled())
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(lcfg, tel.LoggerProvider())
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/embeddings"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/splitter"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/vectorctl/internal/pipeline"

var (
	attributeCommand = attribute.Key("command")
	attributeOutcome = attribute.Key("outcome")
)

// Reporter receives the user-facing progress lines of a run.
// console.Reporter implements it.
type Reporter interface {
	Step(format string, args ...any)
	Field(label string, value any)
	Result(rank int, score float32, source, text string)
}

type discardReporter struct{}

func (discardReporter) Step(string, ...any)                 {}
func (discardReporter) Field(string, any)                   {}
func (discardReporter) Result(int, float32, string, string) {}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets where progress lines go. The default discards them.
func WithReporter(r Reporter) Option {
	return func(run *Runner) { run.reporter = r }
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(run *Runner) { run.logger = l }
}

// WithTracer sets the tracer for stage spans. The default is the global
// tracer provider's.
func WithTracer(t trace.Tracer) Option {
	return func(run *Runner) { run.tracer = t }
}

// WithMeter sets the meter for pipeline counters.
func WithMeter(m metric.Meter) Option {
	return func(run *Runner) { run.meter = m }
}

// Result is what a run produced. Only the fields of the executed command
// are set.
type Result struct {
	Index     string
	IDs       []string
	Documents []schema.Document
	Info      *vectorstore.IndexInfo
}

// Runner provisions the index and then executes one Command.
type Runner struct {
	store    vectorstore.IndexStore
	embedder embeddings.Provider
	cfg      config.Config

	reporter Reporter
	logger   *logging.Logger
	tracer   trace.Tracer
	meter    metric.Meter

	runs metric.Int64Counter

	provisioner *Provisioner
	ingestor    *Ingestor
	eraser      *Eraser
	searcher    *Searcher
}

// NewRunner wires the stages for one configuration.
func NewRunner(cfg config.Config, store vectorstore.IndexStore, embedder embeddings.Provider, opts ...Option) (*Runner, error) {
	if store == nil {
		return nil, errors.New("index store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	r := &Runner{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		reporter: discardReporter{},
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}

	split, err := splitter.New(cfg.Splitter)
	if err != nil {
		return nil, Categorize("configuring splitter", err)
	}

	var chunks metric.Int64Counter
	chunks, err = r.meter.Int64Counter(
		"vectorctl.pipeline.chunks_ingested_total",
		metric.WithDescription("Total number of chunks written to an index"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		r.logger.Warn(context.Background(), "failed to create chunk counter", zap.Error(err))
	}
	r.runs, err = r.meter.Int64Counter(
		"vectorctl.pipeline.runs_total",
		metric.WithDescription("Total number of pipeline runs by command and outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		r.logger.Warn(context.Background(), "failed to create run counter", zap.Error(err))
	}

	r.provisioner = &Provisioner{
		store:    store,
		embedder: embedder,
		index:    cfg.Index,
		probe:    cfg.Embeddings.ProbeDimension,
		reporter: r.reporter,
		logger:   r.logger,
		tracer:   r.tracer,
	}
	r.ingestor = &Ingestor{
		splitter: split,
		reporter: r.reporter,
		logger:   r.logger,
		tracer:   r.tracer,
		chunks:   chunks,
	}
	r.eraser = &Eraser{reporter: r.reporter, logger: r.logger, tracer: r.tracer}
	r.searcher = &Searcher{reporter: r.reporter, logger: r.logger, tracer: r.tracer}
	return r, nil
}

// Run validates cmd, provisions the index and executes cmd against it.
// Invalid commands fail before any remote call.
func (r *Runner) Run(ctx context.Context, cmd Command) (res Result, err error) {
	if cmd == nil {
		return Result{}, errors.New("no command")
	}
	if err := Validate(cmd); err != nil {
		return Result{}, err
	}
	defer func() { r.recordRun(ctx, cmd, err) }()

	r.logger.Debug(ctx, "running command",
		zap.String("command", cmd.Name()),
		zap.String("index", r.cfg.Index.Name),
		zap.String("provider", r.store.Provider()),
	)

	index, err := r.provisioner.Provision(ctx)
	if err != nil {
		return Result{}, err
	}
	res.Index = index.Name()

	switch c := cmd.(type) {
	case Provision:
		return res, nil
	case Ingest:
		res.IDs, err = r.ingestor.Ingest(ctx, index, c.Path)
	case DeleteAll:
		err = r.eraser.Erase(ctx, index)
	case Query:
		res.Documents, err = r.searcher.Search(ctx, index, c.Text, c.TopK)
	case Stats:
		res.Info, err = r.stats(ctx, index)
	default:
		err = fmt.Errorf("unknown command %T", cmd)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (r *Runner) stats(ctx context.Context, index vectorstore.Index) (*vectorstore.IndexInfo, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.Stats")
	defer span.End()

	info, err := index.Stats(ctx)
	if err != nil {
		return nil, fail(span, Categorize("reading index stats", err))
	}

	r.reporter.Field("index", info.Name)
	r.reporter.Field("provider", r.store.Provider())
	if ns := r.cfg.Pinecone.Namespace; ns != "" && r.store.Provider() == config.ProviderPinecone {
		r.reporter.Field("namespace", ns)
	}
	r.reporter.Field("dimension", info.Dimension)
	r.reporter.Field("metric", info.Metric)
	r.reporter.Field("vectors", info.VectorCount)
	r.reporter.Field("ready", info.Ready)
	return &info, nil
}

func (r *Runner) recordRun(ctx context.Context, cmd Command, err error) {
	if r.runs == nil {
		return
	}
	outcome := "ok"
	if c := Category(err); c != nil {
		outcome = c.Error()
	} else if err != nil {
		outcome = "error"
	}
	r.runs.Add(ctx, 1, metric.WithAttributes(
		attributeCommand.String(cmd.Name()),
		attributeOutcome.String(outcome),
	))
}

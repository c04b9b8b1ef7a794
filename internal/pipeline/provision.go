package pipeline

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/embeddings"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

// Provisioner makes sure the configured index exists and opens it.
type Provisioner struct {
	store    vectorstore.IndexStore
	embedder embeddings.Provider
	index    config.IndexConfig
	probe    bool
	reporter Reporter
	logger   *logging.Logger
	tracer   trace.Tracer
}

// Provision lists the existing indexes, creates the configured one when it
// is absent and returns a handle to it. An existing index is never
// recreated. Dimensions of the index, the configuration and the embedder
// must all agree.
func (p *Provisioner) Provision(ctx context.Context) (vectorstore.Index, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Provision")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", p.index.Name),
		attribute.String("provider", p.store.Provider()),
		attribute.Int("dimension", p.index.Dimension),
	)

	p.reporter.Step("Setting up %s settings", p.store.Provider())
	if err := p.checkEmbedder(ctx); err != nil {
		return nil, fail(span, err)
	}

	p.reporter.Step("Checking if index exists")
	names, err := p.store.ListIndexes(ctx)
	if err != nil {
		return nil, fail(span, Categorize("listing indexes", err))
	}

	if slices.Contains(names, p.index.Name) {
		p.reporter.Step("Index exists: %s", p.index.Name)
		if err := p.checkExisting(ctx); err != nil {
			return nil, fail(span, err)
		}
		span.SetAttributes(attribute.Bool("created", false))
	} else {
		p.reporter.Step("Creating index: %s", p.index.Name)
		spec := vectorstore.IndexSpec{
			Name:      p.index.Name,
			Dimension: p.index.Dimension,
			Metric:    p.index.Metric,
		}
		if err := p.store.CreateIndex(ctx, spec); err != nil {
			return nil, fail(span, Categorize("creating index", err))
		}
		p.logger.Info(ctx, "index created",
			zap.String("index", spec.Name),
			zap.Int("dimension", spec.Dimension),
			zap.String("metric", spec.Metric),
		)
		span.SetAttributes(attribute.Bool("created", true))
	}

	p.reporter.Step("Creating vectordb from index")
	index, err := p.store.Open(ctx, p.index.Name, p.embedder)
	if err != nil {
		return nil, fail(span, Categorize("opening index", err))
	}

	span.SetStatus(codes.Ok, "provisioned")
	return index, nil
}

// checkEmbedder compares the embedder's output size with the configured
// index dimension. With probing enabled the embedder is asked for one
// vector; otherwise the size it reports is trusted, and zero means unknown.
func (p *Provisioner) checkEmbedder(ctx context.Context) error {
	dim := p.embedder.Dimension()
	if p.probe {
		probed, err := embeddings.Probe(ctx, p.embedder)
		if err != nil {
			return Categorize("probing embedder dimension", err)
		}
		dim = probed
	}
	if dim != 0 && dim != p.index.Dimension {
		return configurationError("embedder produces %d-dimensional vectors but index %s is configured for %d",
			dim, p.index.Name, p.index.Dimension)
	}
	return nil
}

// checkExisting compares the dimension reported for an existing index with
// the configured one.
func (p *Provisioner) checkExisting(ctx context.Context) error {
	info, err := p.store.DescribeIndex(ctx, p.index.Name)
	if err != nil {
		return Categorize("describing index", err)
	}
	p.logger.Debug(ctx, "existing index",
		zap.String("index", info.Name),
		zap.Int("dimension", info.Dimension),
		zap.String("metric", info.Metric),
		zap.Bool("ready", info.Ready),
	)
	if info.Dimension != 0 && info.Dimension != p.index.Dimension {
		return configurationError("index %s has dimension %d but %d is configured",
			p.index.Name, info.Dimension, p.index.Dimension)
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

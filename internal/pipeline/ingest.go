package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/loader"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/splitter"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

// Ingestor loads a file, splits it into chunks and stores every chunk.
type Ingestor struct {
	splitter *splitter.Splitter
	reporter Reporter
	logger   *logging.Logger
	tracer   trace.Tracer
	chunks   metric.Int64Counter
}

// Ingest stores the document at path in index with a single AddDocuments
// call and returns the generated IDs, one per chunk. Nothing is embedded or
// written unless the file loads.
func (i *Ingestor) Ingest(ctx context.Context, index vectorstore.Index, path string) ([]string, error) {
	ctx, span := i.tracer.Start(ctx, "pipeline.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", index.Name()),
		attribute.String("path", path),
	)

	i.reporter.Step("Loading file %s as document", path)
	docs, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fail(span, inputFileError("loading "+path, err))
	}
	span.SetAttributes(attribute.Int("documents", len(docs)))

	i.reporter.Step("Splitting up document into text")
	chunks, err := i.splitter.Split(docs)
	if err != nil {
		return nil, fail(span, inputFileError("splitting "+path, err))
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	i.logger.Debug(ctx, "document split",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	i.reporter.Step("Adding document into vector database")
	ids, err := index.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fail(span, Categorize("adding documents", err))
	}

	if i.chunks != nil {
		i.chunks.Add(ctx, int64(len(ids)), metric.WithAttributes(attribute.String("index", index.Name())))
	}
	i.reporter.Step("Added %d chunks", len(ids))
	i.logger.Info(ctx, "document ingested",
		zap.String("path", path),
		zap.String("index", index.Name()),
		zap.Int("chunks", len(ids)),
	)

	span.SetStatus(codes.Ok, "ingested")
	return ids, nil
}

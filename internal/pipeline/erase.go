package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

// Eraser removes every vector from an index.
type Eraser struct {
	reporter Reporter
	logger   *logging.Logger
	tracer   trace.Tracer
}

// Erase issues one delete-all request. There is no confirmation and no
// filter. The index and its configuration remain.
func (e *Eraser) Erase(ctx context.Context, index vectorstore.Index) error {
	ctx, span := e.tracer.Start(ctx, "pipeline.Erase")
	defer span.End()
	span.SetAttributes(attribute.String("index", index.Name()))

	e.reporter.Step("Delete all from vectordb")
	if err := index.DeleteAll(ctx); err != nil {
		return fail(span, Categorize("deleting all vectors", err))
	}

	e.logger.Warn(ctx, "all vectors deleted", zap.String("index", index.Name()))
	span.SetStatus(codes.Ok, "erased")
	return nil
}

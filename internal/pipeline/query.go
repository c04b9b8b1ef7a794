package pipeline

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/loader"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

// Searcher runs similarity queries through a langchaingo retriever.
type Searcher struct {
	reporter Reporter
	logger   *logging.Logger
	tracer   trace.Tracer
}

// Search returns up to k chunks ranked by similarity to text and reports
// each one.
func (s *Searcher) Search(ctx context.Context, index vectorstore.Index, text string, k int) ([]schema.Document, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", index.Name()),
		attribute.Int("k", k),
	)

	if k < 1 {
		return nil, fail(span, configurationError("top-k must be at least 1, got %d", k))
	}

	s.reporter.Step("Querying vectordb")
	docs, err := vectorstores.ToRetriever(index, k).GetRelevantDocuments(ctx, text)
	if err != nil {
		return nil, fail(span, Categorize("querying index", err))
	}

	if len(docs) == 0 {
		s.reporter.Step("No results")
	}
	for n, doc := range docs {
		s.reporter.Result(n+1, doc.Score, source(doc), doc.PageContent)
	}
	s.logger.Debug(ctx, "query complete",
		zap.String("index", index.Name()),
		zap.Int("results", len(docs)),
	)

	span.SetAttributes(attribute.Int("results", len(docs)))
	span.SetStatus(codes.Ok, "queried")
	return docs, nil
}

// source renders where a chunk came from, with its page when known.
func source(doc schema.Document) string {
	src, _ := doc.Metadata[loader.MetadataSource].(string)
	if page, ok := doc.Metadata["page"]; ok && src != "" {
		return fmt.Sprintf("%s (page %v)", src, page)
	}
	return src
}

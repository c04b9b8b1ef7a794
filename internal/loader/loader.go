// Package loader reads a local file into langchaingo documents.
//
// The loader is picked by file extension. Files with an unknown extension are
// sniffed: text is loaded as plain text, HTML and PDF by their loaders, and
// anything else is rejected with ErrUnsupportedType.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

var (
	// ErrUnsupportedType is returned for binary content with no loader.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEmptyDocument is returned when no text could be extracted.
	ErrEmptyDocument = errors.New("document has no text")
)

// MetadataSource is the metadata key holding the path a document came from.
const MetadataSource = "source"

// loadFunc extracts documents from an open file of the given size.
type loadFunc func(ctx context.Context, f *os.File, size int64) ([]schema.Document, error)

var byExtension = map[string]loadFunc{
	".txt":      loadText,
	".md":       loadText,
	".markdown": loadText,
	".rst":      loadText,
	".log":      loadText,
	".json":     loadText,
	".yaml":     loadText,
	".yml":      loadText,
	".html":     loadHTML,
	".htm":      loadHTML,
	".pdf":      loadPDF,
	".csv":      loadCSV,
}

// Extensions returns the extensions with a dedicated loader, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads path and returns its non-empty documents. Every document gets
// metadata "source" set to path as given.
func Load(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	load, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		load, err = sniff(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	docs, err := load(ctx, f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	out := docs[:0]
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata[MetadataSource] = path
		out = append(out, doc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDocument)
	}
	return out, nil
}

// sniff picks a loader from the first 512 bytes and rewinds f.
func sniff(f *os.File) (loadFunc, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		return loadHTML, nil
	case strings.HasPrefix(contentType, "text/"):
		return loadText, nil
	case contentType == "application/pdf":
		return loadPDF, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

func loadText(ctx context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	return documentloaders.NewText(f).Load(ctx)
}

func loadPDF(ctx context.Context, f *os.File, size int64) ([]schema.Document, error) {
	return documentloaders.NewPDF(f, size).Load(ctx)
}

func loadCSV(ctx context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	return documentloaders.NewCSV(f).Load(ctx)
}

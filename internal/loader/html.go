package loader

import (
	"context"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/schema"
)

// loadHTML strips non-content elements and converts the rest to Markdown so
// headings and lists survive as text structure.
func loadHTML(_ context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}
	return []schema.Document{htmlDocument(doc)}, nil
}

func htmlDocument(doc *goquery.Document) schema.Document {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, head").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	converter := md.NewConverter("", true, nil)
	text := strings.TrimSpace(converter.Convert(body))

	meta := map[string]any{}
	if title != "" {
		meta["title"] = title
	}
	return schema.Document{PageContent: text, Metadata: meta}
}

package embeddings

import "strings"

// DefaultFastEmbedModel is used when the fastembed provider is selected with
// an OpenAI model name still configured.
const DefaultFastEmbedModel = "BAAI/bge-small-en-v1.5"

var fastEmbedDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// fastEmbedModelDimension returns the output size of a known local model.
func fastEmbedModelDimension(model string) (int, bool) {
	dim, ok := fastEmbedDimensions[model]
	return dim, ok
}

func fastEmbedModelName(model string) string {
	if model == "" || strings.HasPrefix(model, "text-embedding-") {
		return DefaultFastEmbedModel
	}
	return model
}

// ModelDimension reports the default output size of a known model for
// either provider.
func ModelDimension(model string) (int, bool) {
	if dim, ok := openAIDimensions[model]; ok {
		return dim, true
	}
	return fastEmbedModelDimension(model)
}

package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIndexName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "docs", true},
		{"hyphen", "docs-test", true},
		{"underscore", "docs_test_2", true},
		{"empty", "", false},
		{"uppercase", "Docs", false},
		{"leading hyphen", "-docs", false},
		{"path traversal", "../docs", false},
		{"space", "my docs", false},
		{"too long", "a123456789012345678901234567890123456789012345", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexName(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidIndexName)
			}
		})
	}
}

func TestIndexSpec_Validate(t *testing.T) {
	assert.NoError(t, IndexSpec{Name: "docs-test", Dimension: 1536, Metric: MetricCosine}.Validate())
	assert.NoError(t, IndexSpec{Name: "docs", Dimension: 3, Metric: MetricEuclidean}.Validate())

	assert.ErrorIs(t, IndexSpec{Name: "docs", Dimension: -1, Metric: MetricCosine}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, IndexSpec{Name: "docs", Dimension: 3, Metric: ""}.Validate(), ErrUnsupportedMetric)
	assert.ErrorIs(t, IndexSpec{Dimension: 3, Metric: MetricCosine}.Validate(), ErrInvalidIndexName)
}

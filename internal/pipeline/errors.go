package pipeline

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/embeddings"
	"github.com/fyrsmithlabs/vectorctl/internal/loader"
	"github.com/fyrsmithlabs/vectorctl/internal/splitter"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

// Error categories reported to the user. Every error returned by Runner
// wraps exactly one of them together with its cause.
var (
	ErrConfiguration = errors.New("configuration")
	ErrInputFile     = errors.New("input file")
	ErrRemoteService = errors.New("remote service")
)

// configErrors are lower-level sentinels that indicate bad settings rather
// than a failing service.
var configErrors = []error{
	config.ErrInvalidConfig,
	embeddings.ErrInvalidConfig,
	vectorstore.ErrInvalidConfig,
	vectorstore.ErrInvalidIndexName,
	vectorstore.ErrUnsupportedMetric,
	splitter.ErrInvalidParams,
}

// inputErrors indicate a problem with the file being ingested.
var inputErrors = []error{
	loader.ErrUnsupportedType,
	loader.ErrEmptyDocument,
	fs.ErrNotExist,
	fs.ErrPermission,
}

// Categorize wraps err with the category its cause belongs to. Errors
// without a recognizable cause are remote-service errors.
func Categorize(op string, err error) error {
	if err == nil {
		return nil
	}
	if Category(err) != nil {
		return err
	}
	for _, target := range configErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %s: %w", ErrConfiguration, op, err)
		}
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %s: %w", ErrInputFile, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrRemoteService, op, err)
}

// Category returns the category err wraps, or nil.
func Category(err error) error {
	for _, c := range []error{ErrConfiguration, ErrInputFile, ErrRemoteService} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

func configurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func inputFileError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInputFile, op, err)
}

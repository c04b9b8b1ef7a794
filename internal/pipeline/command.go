package pipeline

import "fmt"

// Command is the single action a run performs after provisioning. The set
// of variants is closed: Provision, Ingest, DeleteAll, Query and Stats.
type Command interface {
	command()
	// Name identifies the command in logs and spans.
	Name() string
}

// Provision only ensures the index exists.
type Provision struct{}

// Ingest loads, splits and stores the document at Path.
type Ingest struct {
	Path string
}

// DeleteAll removes every vector from the index.
type DeleteAll struct{}

// Query retrieves the TopK chunks most similar to Text.
type Query struct {
	Text string
	TopK int
}

// Stats reports the index shape and vector count.
type Stats struct{}

// DefaultTopK is the number of query results when none is given.
const DefaultTopK = 3

func (Provision) command() {}
func (Ingest) command()    {}
func (DeleteAll) command() {}
func (Query) command()     {}
func (Stats) command()     {}

func (Provision) Name() string { return "provision" }
func (Ingest) Name() string    { return "ingest" }
func (DeleteAll) Name() string { return "delete_all" }
func (Query) Name() string     { return "query" }
func (Stats) Name() string     { return "stats" }

// Validate checks a command before any remote call is made.
func Validate(cmd Command) error {
	switch c := cmd.(type) {
	case Provision, DeleteAll, Stats:
		return nil
	case Ingest:
		if c.Path == "" {
			return inputFileError("validating command", fmt.Errorf("path is empty"))
		}
		return nil
	case Query:
		if c.Text == "" {
			return configurationError("query text is empty")
		}
		if c.TopK < 1 {
			return configurationError("top-k must be at least 1, got %d", c.TopK)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

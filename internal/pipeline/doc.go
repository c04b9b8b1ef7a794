// Package pipeline runs one vectorctl command against an index.
//
// Every run provisions the index first (create when missing, check the
// dimension when present) and then executes exactly one Command:
//
//	Provision{}            nothing further
//	Ingest{Path}           load, split, embed and upsert in one batch
//	DeleteAll{}            remove every vector, keep the index
//	Query{Text, TopK}      similarity search through a retriever
//	Stats{}                report the index description
//
// Errors returned by Runner wrap one of ErrConfiguration, ErrInputFile or
// ErrRemoteService together with the underlying cause.
package pipeline

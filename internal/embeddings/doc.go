// Package embeddings turns text into vectors.
//
// Two providers are available: OpenAI-compatible HTTP endpoints through
// langchaingo, and local ONNX models through fastembed (cgo builds only).
// Every provider reports its output dimension so the index can be checked
// against it before any vector is written.
package embeddings

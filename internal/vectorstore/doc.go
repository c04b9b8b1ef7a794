// Package vectorstore manages vector indexes and the documents stored in them.
//
// An IndexStore is the control plane of one backend: it lists, creates and
// describes indexes, and opens an Index handle for the data plane. Four
// backends are provided:
//   - Pinecone, the managed service (go-pinecone control plane, langchaingo data plane)
//   - Qdrant over gRPC
//   - chromem-go persisted to a local directory
//   - chromem-go in memory, used by tests and dry runs
//
// Every Index satisfies langchaingo's vectorstores.VectorStore, so a handle
// plugs directly into vectorstores.ToRetriever. Chunk text is kept in
// metadata under TextKey ("text") on the way in and moved back into
// PageContent on the way out.
//
// # Usage
//
//	store, err := vectorstore.NewStore(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	spec := vectorstore.IndexSpec{Name: "docs", Dimension: 1536, Metric: vectorstore.MetricCosine}
//	if err := store.CreateIndex(ctx, spec); err != nil {
//	    return err
//	}
//
//	index, err := store.Open(ctx, "docs", embedder)
//	if err != nil {
//	    return err
//	}
//	ids, err := index.AddDocuments(ctx, chunks)
//
// Recorder wraps any IndexStore and counts calls, for asserting which remote
// operations a code path performed.
package vectorstore

package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	vcembeddings "github.com/fyrsmithlabs/vectorctl/internal/embeddings"
)

// fakeControl is an in-memory Pinecone control plane. New indexes report
// ready after readyAfter describe calls.
type fakeControl struct {
	mu         sync.Mutex
	indexes    map[string]*pinecone.Index
	describes  map[string]int
	readyAfter int
	pods       []*pinecone.CreatePodIndexRequest
	serverless []*pinecone.CreateServerlessIndexRequest
	listErr    error
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		indexes:   make(map[string]*pinecone.Index),
		describes: make(map[string]int),
	}
}

func (f *fakeControl) add(name string, dim int32) {
	f.indexes[name] = &pinecone.Index{
		Name:      name,
		Dimension: dim,
		Host:      name + "-abc123.svc.us-east1-gcp.pinecone.io",
		Metric:    pinecone.Cosine,
		Status:    &pinecone.IndexStatus{Ready: true},
	}
}

func (f *fakeControl) ListIndexes(context.Context) ([]*pinecone.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*pinecone.Index, 0, len(f.indexes))
	for _, idx := range f.indexes {
		out = append(out, idx)
	}
	return out, nil
}

func (f *fakeControl) CreatePodIndex(_ context.Context, in *pinecone.CreatePodIndexRequest) (*pinecone.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pods = append(f.pods, in)
	return f.create(in.Name, in.Dimension, in.Metric), nil
}

func (f *fakeControl) CreateServerlessIndex(_ context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serverless = append(f.serverless, in)
	return f.create(in.Name, in.Dimension, in.Metric), nil
}

func (f *fakeControl) create(name string, dim int32, metric pinecone.IndexMetric) *pinecone.Index {
	idx := &pinecone.Index{
		Name:      name,
		Dimension: dim,
		Host:      name + "-abc123.svc.us-east1-gcp.pinecone.io",
		Metric:    metric,
		Status:    &pinecone.IndexStatus{Ready: false},
	}
	f.indexes[name] = idx
	return idx
}

func (f *fakeControl) DescribeIndex(_ context.Context, name string) (*pinecone.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indexes[name]
	if !ok {
		return nil, errors.New("404 not found")
	}
	f.describes[name]++
	if f.describes[name] > f.readyAfter {
		idx.Status = &pinecone.IndexStatus{Ready: true}
	}
	return idx, nil
}

type fakeConnection struct {
	host      string
	namespace string
	deletes   int
	closed    bool
	stats     *pinecone.DescribeIndexStatsResponse
}

func (c *fakeConnection) DeleteAllVectorsInNamespace(*context.Context) error {
	c.deletes++
	return nil
}

func (c *fakeConnection) DescribeIndexStats(*context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	return c.stats, nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

func podConfig() config.PineconeConfig {
	return config.PineconeConfig{
		APIKey:  "pc-test-key",
		Env:     "us-east1-gcp",
		PodType: "p1.x1",
		Cloud:   "aws",
	}
}

func newTestPinecone(control *fakeControl, cfg config.PineconeConfig) (*PineconeStore, *[]*fakeConnection) {
	var conns []*fakeConnection
	connect := func(host, namespace string) (pineconeConnection, error) {
		conn := &fakeConnection{
			host:      host,
			namespace: namespace,
			stats: &pinecone.DescribeIndexStatsResponse{
				TotalVectorCount: 7,
				Namespaces: map[string]*pinecone.NamespaceSummary{
					"":     {VectorCount: 4},
					"team": {VectorCount: 3},
				},
			},
		}
		conns = append(conns, conn)
		return conn, nil
	}
	store := newPineconeStore(control, connect, cfg, PineconeOptions{
		ReadyTimeout: time.Second,
		PollInterval: time.Millisecond,
	})
	return store, &conns
}

func TestPineconeStore_ListIndexes(t *testing.T) {
	control := newFakeControl()
	control.add("docs-test", 1536)
	store, _ := newTestPinecone(control, podConfig())

	names, err := store.ListIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs-test"}, names)
	assert.Equal(t, config.ProviderPinecone, store.Provider())
}

func TestPineconeStore_ListError(t *testing.T) {
	control := newFakeControl()
	control.listErr = errors.New("401 unauthorized")
	store, _ := newTestPinecone(control, podConfig())

	_, err := store.ListIndexes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func TestPineconeStore_CreatePodIndexWaitsForReady(t *testing.T) {
	control := newFakeControl()
	control.readyAfter = 2
	store, _ := newTestPinecone(control, podConfig())

	err := store.CreateIndex(context.Background(), IndexSpec{Name: "docs-test", Dimension: 1536, Metric: MetricCosine})
	require.NoError(t, err)

	require.Len(t, control.pods, 1)
	assert.Empty(t, control.serverless)
	req := control.pods[0]
	assert.Equal(t, "docs-test", req.Name)
	assert.Equal(t, int32(1536), req.Dimension)
	assert.Equal(t, pinecone.Cosine, req.Metric)
	assert.Equal(t, "us-east1-gcp", req.Environment)
	assert.Equal(t, "p1.x1", req.PodType)
	assert.Equal(t, 3, control.describes["docs-test"])

	info, err := store.DescribeIndex(context.Background(), "docs-test")
	require.NoError(t, err)
	assert.True(t, info.Ready)
	assert.Equal(t, 1536, info.Dimension)
}

func TestPineconeStore_CreateServerlessIndex(t *testing.T) {
	cfg := podConfig()
	cfg.Region = "us-east-1"
	control := newFakeControl()
	store, _ := newTestPinecone(control, cfg)

	err := store.CreateIndex(context.Background(), IndexSpec{Name: "docs", Dimension: 8, Metric: MetricDotProduct})
	require.NoError(t, err)

	require.Len(t, control.serverless, 1)
	assert.Empty(t, control.pods)
	assert.Equal(t, pinecone.Cloud("aws"), control.serverless[0].Cloud)
	assert.Equal(t, "us-east-1", control.serverless[0].Region)
	assert.Equal(t, pinecone.Dotproduct, control.serverless[0].Metric)
}

func TestPineconeStore_CreateIndexReadyTimeout(t *testing.T) {
	control := newFakeControl()
	control.readyAfter = 1 << 30
	store, _ := newTestPinecone(control, podConfig())
	store.opts.ReadyTimeout = 10 * time.Millisecond

	err := store.CreateIndex(context.Background(), IndexSpec{Name: "slow", Dimension: 8, Metric: MetricCosine})
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestPineconeStore_CreateIndexInvalidSpec(t *testing.T) {
	control := newFakeControl()
	store, _ := newTestPinecone(control, podConfig())

	err := store.CreateIndex(context.Background(), IndexSpec{Name: "docs", Dimension: 8, Metric: "manhattan"})
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
	assert.Empty(t, control.pods)
}

func TestPineconeStore_DescribeMissing(t *testing.T) {
	store, _ := newTestPinecone(newFakeControl(), podConfig())

	_, err := store.DescribeIndex(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrIndexNotFound)

	_, err = store.Open(context.Background(), "missing", vcembeddings.NewFake(8))
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestPineconeIndex_DeleteAllAndStats(t *testing.T) {
	ctx := context.Background()
	control := newFakeControl()
	control.add("docs-test", 1536)

	t.Run("default namespace", func(t *testing.T) {
		store, conns := newTestPinecone(control, podConfig())
		index, err := store.Open(ctx, "docs-test", vcembeddings.NewFake(1536))
		require.NoError(t, err)
		assert.Equal(t, "docs-test", index.Name())

		require.NoError(t, index.DeleteAll(ctx))
		require.Len(t, *conns, 1)
		conn := (*conns)[0]
		assert.Equal(t, 1, conn.deletes)
		assert.Equal(t, "docs-test-abc123.svc.us-east1-gcp.pinecone.io", conn.host)
		assert.Empty(t, conn.namespace)
		assert.True(t, conn.closed)

		stats, err := index.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), stats.VectorCount)
		assert.Equal(t, 1536, stats.Dimension)
	})

	t.Run("configured namespace", func(t *testing.T) {
		cfg := podConfig()
		cfg.Namespace = "team"
		store, conns := newTestPinecone(control, cfg)
		index, err := store.Open(ctx, "docs-test", vcembeddings.NewFake(1536))
		require.NoError(t, err)

		require.NoError(t, index.DeleteAll(ctx))
		assert.Equal(t, "team", (*conns)[0].namespace)

		stats, err := index.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.VectorCount)
	})
}

func TestNewPineconeStore_Validation(t *testing.T) {
	_, err := NewPineconeStore(config.PineconeConfig{Env: "us-east1-gcp"}, PineconeOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPineconeStore(config.PineconeConfig{APIKey: "key"}, PineconeOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/embeddings"
	"github.com/fyrsmithlabs/vectorctl/internal/pipeline"
	"github.com/fyrsmithlabs/vectorctl/internal/vectorstore"
)

type testApp struct {
	*app
	out      *bytes.Buffer
	envFile  string
	recorder *vectorstore.Recorder
	embedder *embeddings.Fake
	storeCfg config.Config
}

// newTestApp runs the CLI against an in-memory index and a deterministic
// embedder. The store outlives individual runs so state carries over.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VECTORSTORE_PROVIDER", config.ProviderMemory)
	t.Setenv("PINECODE_INDEX", "docs-test")
	t.Setenv("OPENAI_API_KEY", "sk-test-not-a-real-key")

	envFile := filepath.Join(home, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# empty\n"), 0o600))

	out := &bytes.Buffer{}
	ta := &testApp{
		app:      newApp(out, &bytes.Buffer{}),
		out:      out,
		envFile:  envFile,
		recorder: vectorstore.NewRecorder(vectorstore.NewMemoryStore(nil)),
		embedder: embeddings.NewFake(1536),
	}
	ta.newStore = func(_ context.Context, cfg config.Config, _ ...vectorstore.StoreOption) (vectorstore.IndexStore, error) {
		ta.storeCfg = cfg
		return ta.recorder, nil
	}
	ta.newEmbedder = func(config.EmbeddingsConfig, ...embeddings.Option) (embeddings.Provider, error) {
		return ta.embedder, nil
	}
	return ta
}

func (ta *testApp) execute(args ...string) (string, error) {
	ta.out.Reset()
	cmd := newRootCmd(ta.app)
	cmd.SetArgs(append(args, "--env-file", ta.envFile))
	err := cmd.Execute()
	return ta.out.String(), err
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, cmd := range root.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd(newApp(&bytes.Buffer{}, &bytes.Buffer{}))

	for _, name := range []string{"stats", "version"} {
		cmd := findCommand(root, name)
		require.NotNil(t, cmd, "%s command not found", name)
		assert.NotEmpty(t, cmd.Short)
	}

	for _, name := range []string{"load", "delete_all", "query", "top-k"} {
		assert.NotNil(t, root.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "l", root.Flags().Lookup("load").Shorthand)
	assert.Equal(t, "d", root.Flags().Lookup("delete_all").Shorthand)
	assert.Equal(t, "3", root.Flags().Lookup("top-k").DefValue)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func TestRun_NoFlagsProvisionsOnly(t *testing.T) {
	ta := newTestApp(t)

	out, err := ta.execute()
	require.NoError(t, err)

	assert.Equal(t, []vectorstore.IndexSpec{{Name: "docs-test", Dimension: 1536, Metric: "cosine"}}, ta.recorder.Created())
	assert.Equal(t, 1, ta.recorder.Writes())
	assert.Empty(t, ta.recorder.Upserted())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"Vector index management tool",
		"- Setting up memory settings",
		"- Checking if index exists",
		"- Creating index: docs-test",
		"- Creating vectordb from index",
		"End",
	}, lines)
	assert.Equal(t, "docs-test", ta.storeCfg.Index.Name)
}

func TestRun_LoadIngestsFile(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 1200)), 0o600))

	out, err := ta.execute("-l", path)
	require.NoError(t, err)

	batches := ta.recorder.Upserted()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Contains(t, out, "- Loading file "+path+" as document")
	assert.Contains(t, out, "- Splitting up document into text")
	assert.Contains(t, out, "- Adding document into vector database")
	assert.Contains(t, out, "- Added 3 chunks")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "End"))
}

func TestRun_LoadMissingFile(t *testing.T) {
	ta := newTestApp(t)

	out, err := ta.execute("--load", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrInputFile)
	assert.Zero(t, ta.embedder.DocumentCalls())
	assert.NotContains(t, out, "End")
}

func TestRun_DeleteAllValues(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		delete bool
	}{
		{name: "bare short flag", args: []string{"-d"}, delete: true},
		{name: "separate value", args: []string{"--delete_all", "true"}, delete: true},
		{name: "inline value", args: []string{"--delete_all=yes"}, delete: true},
		{name: "any other value", args: []string{"-d", "please"}, delete: true},
		{name: "false", args: []string{"-d", "false"}, delete: false},
		{name: "zero", args: []string{"--delete_all=0"}, delete: false},
		{name: "off uppercase", args: []string{"--delete_all", "OFF"}, delete: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)

			out, err := ta.execute(tt.args...)
			require.NoError(t, err)

			if tt.delete {
				assert.Equal(t, 1, ta.recorder.Calls(vectorstore.OpDeleteAll))
				assert.Contains(t, out, "- Delete all from vectordb")
			} else {
				assert.Zero(t, ta.recorder.Calls(vectorstore.OpDeleteAll))
				assert.NotContains(t, out, "Delete all")
			}
		})
	}
}

func TestRun_DeleteAllEmptiesIndex(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("Pinecone keeps vectors in indexes."), 0o600))

	_, err := ta.execute("-l", path)
	require.NoError(t, err)
	_, err = ta.execute("-d")
	require.NoError(t, err)

	out, err := ta.execute("-q", "vectors")
	require.NoError(t, err)
	assert.Contains(t, out, "- No results")
	assert.Equal(t, 1, ta.recorder.Calls(vectorstore.OpCreateIndex))
}

func TestRun_FlagsAreMutuallyExclusive(t *testing.T) {
	tests := [][]string{
		{"-l", "doc.txt", "-d"},
		{"-l", "doc.txt", "-q", "text"},
		{"--delete_all=true", "--query", "text"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			ta := newTestApp(t)

			_, err := ta.execute(args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "none of the others can be")
			assert.Zero(t, ta.recorder.Calls(vectorstore.OpListIndexes))
			assert.Zero(t, ta.recorder.Writes())
		})
	}
}

func TestRun_UnexpectedArgument(t *testing.T) {
	ta := newTestApp(t)

	_, err := ta.execute("stray")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unexpected argument "stray"`)
	assert.Zero(t, ta.recorder.Calls(vectorstore.OpListIndexes))
}

func TestRun_Query(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	content := strings.Repeat("Comets orbit the sun on long paths. ", 15) + "\n\n" +
		strings.Repeat("Bakers knead dough before dawn. ", 15)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := ta.execute("-l", path)
	require.NoError(t, err)

	out, err := ta.execute("-q", "comets orbit sun", "-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "- Querying vectordb")
	assert.Contains(t, out, "1. score=")
	assert.Contains(t, out, "Comets orbit")
	assert.NotContains(t, out, "2. score=")
}

func TestRun_QueryRejectsZeroTopK(t *testing.T) {
	ta := newTestApp(t)

	_, err := ta.execute("-q", "anything", "-k", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrConfiguration)
	assert.Zero(t, ta.recorder.Calls(vectorstore.OpListIndexes))
}

func TestRun_MissingIndexName(t *testing.T) {
	ta := newTestApp(t)
	t.Setenv("PINECODE_INDEX", "")

	_, err := ta.execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrConfiguration)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Zero(t, ta.recorder.Calls(vectorstore.OpListIndexes))
}

func TestRun_EnvFileSuppliesSettings(t *testing.T) {
	ta := newTestApp(t)
	t.Setenv("PINECODE_INDEX", "")
	require.NoError(t, os.Unsetenv("PINECODE_INDEX"))
	require.NoError(t, os.WriteFile(ta.envFile, []byte("PINECODE_INDEX=from-dotenv\n"), 0o600))

	_, err := ta.execute()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", ta.storeCfg.Index.Name)
	require.Len(t, ta.recorder.Created(), 1)
	assert.Equal(t, "from-dotenv", ta.recorder.Created()[0].Name)
}

func TestRun_StoreFailureIsRemote(t *testing.T) {
	ta := newTestApp(t)
	ta.recorder.FailOn(vectorstore.OpListIndexes, assert.AnError)

	_, err := ta.execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrRemoteService)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStatsCmd(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("one short chunk"), 0o600))
	_, err := ta.execute("-l", path)
	require.NoError(t, err)

	out, err := ta.execute("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "index: docs-test")
	assert.Contains(t, out, "dimension: 1536")
	assert.Contains(t, out, "metric: cosine")
	assert.Contains(t, out, "vectors: 1")
	assert.Contains(t, out, "ready: true")
}

func TestVersionCmd(t *testing.T) {
	out := &bytes.Buffer{}
	root := newRootCmd(newApp(out, &bytes.Buffer{}))
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Version:    "+version)
	assert.Contains(t, out.String(), "Commit:")
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"", "false", "FALSE", "0", "no", "n", "off", " off "} {
		assert.False(t, truthy(v), "%q", v)
	}
	for _, v := range []string{"true", "1", "yes", "y", "on", "anything"} {
		assert.True(t, truthy(v), "%q", v)
	}
}

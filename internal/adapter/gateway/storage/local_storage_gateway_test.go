package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

func newLocalGateway(t *testing.T) (*LocalStorageGateway, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	gateway, err := NewLocalStorageGateway(fs, ".gba/var/artifacts")
	require.NoError(t, err)
	return gateway, fs
}

func TestLocalStorageGateway_SaveAndLoadArtifact(t *testing.T) {
	gateway, fs := newLocalGateway(t)
	ctx := context.Background()

	content := []byte("=== build ===\nmain.go:3: undefined: Retry")
	metadata, err := gateway.SaveArtifact(ctx, output.SaveArtifactRequest{
		RunID:        "run-1",
		ArtifactType: output.ArtifactTypeHookLog,
		Name:         "phase-1-hook-build-attempt-0",
		Content:      content,
		ContentType:  "text/plain",
		Metadata:     map[string]string{"hook": "build"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".gba/var/artifacts", "run-1", metadata.ID, "content"), metadata.StoragePath)

	// Verify files on disk
	stored, err := afero.ReadFile(fs, metadata.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
	exists, err := afero.Exists(fs, filepath.Join(".gba/var/artifacts", "run-1", metadata.ID, "metadata.json"))
	require.NoError(t, err)
	assert.True(t, exists)

	artifact, err := gateway.LoadArtifact(ctx, metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, content, artifact.Content)
	assert.Equal(t, output.ArtifactTypeHookLog, artifact.Metadata.Type)
	assert.Equal(t, "build", artifact.Metadata.Metadata["hook"])
	assert.Equal(t, "phase-1-hook-build-attempt-0", artifact.Metadata.Name)
}

func TestLocalStorageGateway_LoadArtifact_NotFound(t *testing.T) {
	gateway, _ := newLocalGateway(t)

	_, err := gateway.LoadArtifact(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact not found")
}

func TestLocalStorageGateway_ListArtifacts(t *testing.T) {
	gateway, fs := newLocalGateway(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"code-task", "hook-build", "record"} {
		metadata, err := gateway.SaveArtifact(ctx, output.SaveArtifactRequest{
			RunID:   "run-1",
			Name:    name,
			Content: []byte(name),
		})
		require.NoError(t, err)
		ids = append(ids, metadata.ID)
	}
	_, err := gateway.SaveArtifact(ctx, output.SaveArtifactRequest{RunID: "run-2", Content: []byte("x")})
	require.NoError(t, err)

	// A directory without metadata is skipped
	require.NoError(t, fs.MkdirAll(".gba/var/artifacts/run-1/broken", 0o755))

	list, err := gateway.ListArtifacts(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, metadata := range list {
		assert.Equal(t, ids[i], metadata.ID)
	}
}

func TestLocalStorageGateway_ListArtifacts_EmptyRun(t *testing.T) {
	gateway, _ := newLocalGateway(t)

	list, err := gateway.ListArtifacts(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLocalStorageGateway_SaveRequiresRunID(t *testing.T) {
	gateway, _ := newLocalGateway(t)

	_, err := gateway.SaveArtifact(context.Background(), output.SaveArtifactRequest{Content: []byte("x")})
	assert.Error(t, err)
}

func TestLocalStorageGateway_SaveCancelled(t *testing.T) {
	gateway, _ := newLocalGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.SaveArtifact(ctx, output.SaveArtifactRequest{RunID: "run-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRunLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")

	lock, err := AcquireRunLock(dir, "0001_upload")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0001_upload.lock"), lock.Path())

	content, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "pid="), "holder line: %q", content)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release(), "second release is a no-op")
}

func TestAcquireRunLock_Held(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireRunLock(dir, "0001_upload")
	require.NoError(t, err)
	defer first.Release()

	// A second descriptor conflicts with the first, even in the same process
	_, err = AcquireRunLock(dir, "0001_upload")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, "0001_upload", locked.Slug)
	assert.Contains(t, locked.Holder, "pid=")
}

func TestAcquireRunLock_OtherFeature(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireRunLock(dir, "0001_upload")
	require.NoError(t, err)
	defer first.Release()

	second, err := AcquireRunLock(dir, "0002_cache")
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestAcquireRunLock_AfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireRunLock(dir, "0001_upload")
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireRunLock(dir, "0001_upload")
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestLockedError_Message(t *testing.T) {
	assert.Equal(t, "0001_upload: feature is already running", (&LockedError{Slug: "0001_upload"}).Error())
	assert.Equal(t, "0001_upload: feature is already running (pid=42 since=2026-01-01T00:00:00Z)",
		(&LockedError{Slug: "0001_upload", Holder: "pid=42 since=2026-01-01T00:00:00Z"}).Error())
}

package hook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// TestMain runs goleak verification for all tests in this package
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestShellHookRunner_RunsInOrderWithoutShortCircuit(t *testing.T) {
	dir := t.TempDir()
	runner := NewShellHookRunner(time.Minute, nil)

	outcomes := runner.RunAll(context.Background(), []output.Hook{
		{Name: "fmt", Command: "echo formatted >> log.txt"},
		{Name: "lint", Command: "echo 'unused variable x' >&2; exit 1"},
		{Name: "test", Command: "echo tested >> log.txt"},
	}, dir)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Passed)
	assert.False(t, outcomes[1].Passed)
	assert.Equal(t, "unused variable x", outcomes[1].Output)
	assert.Equal(t, "echo 'unused variable x' >&2; exit 1", outcomes[1].Command)
	assert.True(t, outcomes[2].Passed)

	log, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "formatted\ntested\n", string(log))

	assert.False(t, output.AllPassed(outcomes))
	failed := output.FailedHooks(outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, "lint", failed[0].Name)
}

func TestShellHookRunner_CombinesStdoutAndStderr(t *testing.T) {
	outcomes := NewShellHookRunner(0, nil).RunAll(context.Background(), []output.Hook{
		{Name: "build", Command: "echo out; echo err >&2; exit 2"},
	}, t.TempDir())

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.Equal(t, "out\nerr", outcomes[0].Output)
}

func TestShellHookRunner_Timeout(t *testing.T) {
	outcomes := NewShellHookRunner(200*time.Millisecond, nil).RunAll(context.Background(), []output.Hook{
		{Name: "slow", Command: "sleep 5"},
	}, t.TempDir())

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.Contains(t, outcomes[0].Output, "timed out")
}

func TestShellHookRunner_TimeoutKillsChildProcesses(t *testing.T) {
	start := time.Now()
	outcomes := NewShellHookRunner(200*time.Millisecond, nil).RunAll(context.Background(), []output.Hook{
		{Name: "slow", Command: "sleep 4; echo done"},
	}, t.TempDir())

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.Contains(t, outcomes[0].Output, "timed out")
	assert.NotContains(t, outcomes[0].Output, "done")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShellHookRunner_CancelStopsRunningHook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	outcomes := NewShellHookRunner(time.Minute, nil).RunAll(ctx, []output.Hook{
		{Name: "slow", Command: "sleep 4; echo done"},
	}, t.TempDir())

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.NotContains(t, outcomes[0].Output, "done")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShellHookRunner_MissingWorkDirFailsHook(t *testing.T) {
	outcomes := NewShellHookRunner(time.Minute, nil).RunAll(context.Background(), []output.Hook{
		{Name: "build", Command: "true"},
	}, filepath.Join(t.TempDir(), "missing"))

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.Contains(t, outcomes[0].Output, "failed to run hook")
}

func TestShellHookRunner_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := NewShellHookRunner(time.Minute, nil).RunAll(ctx, []output.Hook{
		{Name: "a", Command: "true"},
		{Name: "b", Command: "true"},
	}, t.TempDir())

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Passed)
		assert.True(t, strings.HasPrefix(o.Output, "skipped"))
	}
}

func TestShellHookRunner_WithEnv(t *testing.T) {
	base := NewShellHookRunner(time.Minute, nil)
	runner := base.WithEnv("GBA_FEATURE_SLUG=0001_upload_retries")

	outcomes := runner.RunAll(context.Background(), []output.Hook{
		{Name: "env", Command: "echo $GBA_FEATURE_SLUG"},
	}, t.TempDir())
	assert.Equal(t, "0001_upload_retries", outcomes[0].Output)
	assert.Empty(t, base.env, "WithEnv must not modify the receiver")
}

func TestCombine_TruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", maxOutputBytes+100)
	out := combine([]byte(long), nil)
	assert.True(t, strings.HasPrefix(out, "...(truncated)\n"))
	assert.Len(t, out, maxOutputBytes+len("...(truncated)\n"))
}

func TestCombine_TruncatesOnCharacterBoundary(t *testing.T) {
	// 3-byte runes, offset by one byte so the cut lands mid-rune
	long := "x" + strings.Repeat("あ", maxOutputBytes/3+10)
	out := combine([]byte(long), nil)

	require.True(t, strings.HasPrefix(out, "...(truncated)\n"))
	assert.True(t, utf8.ValidString(out))
	tail := strings.TrimPrefix(out, "...(truncated)\n")
	assert.LessOrEqual(t, len(tail), maxOutputBytes)
	assert.True(t, strings.HasSuffix(long, tail))
}

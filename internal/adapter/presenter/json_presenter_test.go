package presenter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/gba/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(buf).Decode(&result))
	return result
}

func TestJSONPresenter_PresentSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	require.NoError(t, p.PresentSuccess("run finished", &dto.RunFeatureOutput{RunID: "01J", Status: "completed"}))

	result := decode(t, buf)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "run finished", result["message"])
	data, ok := result["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "01J", data["run_id"])
}

func TestJSONPresenter_PresentError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	require.NoError(t, p.PresentError(errors.New("test error")))
	result := decode(t, buf)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "test error", result["error"])
	assert.NotContains(t, result, "code")

	require.NoError(t, p.PresentError(execution.ErrRecordMissing("0001_upload")))
	result = decode(t, buf)
	assert.Equal(t, execution.CodeRecordMissing, result["code"])
}

func TestJSONPresenter_PresentProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	require.NoError(t, p.PresentProgress("Phases", 3, 10))

	result := decode(t, buf)
	assert.Equal(t, "progress", result["type"])
	assert.Equal(t, float64(3), result["progress"])
	assert.Equal(t, float64(10), result["total"])
	assert.Equal(t, 30.0, result["percent"])
}

func TestJSONPresenter_PresentEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	require.NoError(t, p.PresentEvent(execution.PhaseCommittedEvent{Index: 1, Commit: "abc1234"}))
	result := decode(t, buf)
	assert.Equal(t, "phase_committed", result["type"])
	assert.Equal(t, map[string]interface{}{"index": float64(1), "commit": "abc1234"}, result["data"])

	require.NoError(t, p.PresentEvent(execution.FailedEvent{Err: execution.ErrRecordMissing("0001_upload")}))
	result = decode(t, buf)
	assert.Equal(t, "failed", result["type"])
	data := result["data"].(map[string]interface{})
	assert.Equal(t, execution.CodeRecordMissing, data["code"])
}

package presenter

import (
	"encoding/json"
	"io"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// JSONPresenter implements output.EventPresenter as JSON lines
// for programmatic consumption
type JSONPresenter struct {
	encoder *json.Encoder
}

// NewJSONPresenter creates a new JSON presenter
func NewJSONPresenter(w io.Writer) *JSONPresenter {
	return &JSONPresenter{encoder: json.NewEncoder(w)}
}

// PresentSuccess presents a successful result as JSON
func (p *JSONPresenter) PresentSuccess(message string, data interface{}) error {
	return p.encoder.Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// PresentError presents an error as JSON, with its code when it has one
func (p *JSONPresenter) PresentError(err error) error {
	result := map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
	if execErr, ok := execution.AsExecutionError(err); ok {
		result["code"] = execErr.Code
	}
	return p.encoder.Encode(result)
}

// PresentProgress presents progress information as JSON
func (p *JSONPresenter) PresentProgress(message string, progress int, total int) error {
	result := map[string]interface{}{
		"type":     "progress",
		"message":  message,
		"progress": progress,
		"total":    total,
	}
	if total > 0 {
		result["percent"] = float64(progress) / float64(total) * 100
	}
	return p.encoder.Encode(result)
}

// PresentEvent writes {"type": kind, "data": event} for every event
func (p *JSONPresenter) PresentEvent(event execution.Event) error {
	var data interface{} = event
	if f, ok := event.(execution.FailedEvent); ok {
		data = f.Payload()
	}
	return p.encoder.Encode(map[string]interface{}{
		"type": event.Kind(),
		"data": data,
	})
}

var _ output.EventPresenter = (*JSONPresenter)(nil)

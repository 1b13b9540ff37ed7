package output

import "github.com/YoshitsuguKoike/gba/internal/domain/execution"

// Presenter defines the interface for presenting output to users
// Different implementations can format output for CLI, JSON, or other formats
type Presenter interface {
	// PresentSuccess presents a successful result
	PresentSuccess(message string, data interface{}) error

	// PresentError presents an error
	PresentError(err error) error

	// PresentProgress presents progress information
	PresentProgress(message string, progress int, total int) error
}

// EventPresenter also renders the live event stream of a run
type EventPresenter interface {
	Presenter

	// PresentEvent presents one run event as it arrives
	PresentEvent(event execution.Event) error
}

package pipeline

import "log/slog"

// EventKind identifies a progress event.
type EventKind string

const (
	// EventFileDone is sent once per input file, whatever its status.
	EventFileDone EventKind = "file_done"

	// EventCropWritten is sent for every crop attempt.
	EventCropWritten EventKind = "crop_written"
)

// Event is a progress notification.
type Event struct {
	Kind EventKind

	Input  string
	Output string
	Status Status

	// Region is the crop index for EventCropWritten, -1 otherwise.
	Region int

	// Done and Total count input files. Done includes this event's file
	// for EventFileDone.
	Done  int
	Total int

	Err error
}

// Progress receives batch progress events. Report may be called from
// several goroutines at once.
type Progress interface {
	Report(Event)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(Event)

func (f ProgressFunc) Report(e Event) { f(e) }

// LogProgress logs every event.
type LogProgress struct {
	Logger *slog.Logger
}

func (p LogProgress) Report(e Event) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch e.Kind {
	case EventCropWritten:
		if e.Err != nil {
			logger.Warn("crop failed", "input", e.Input, "region", e.Region, "dest", e.Output, "error", e.Err)
			return
		}
		logger.Debug("crop written", "input", e.Input, "region", e.Region, "dest", e.Output)
	case EventFileDone:
		attrs := []any{"input", e.Input, "status", e.Status, "done", e.Done, "total", e.Total}
		switch e.Status {
		case StatusOK:
			logger.Info("file processed", attrs...)
		default:
			logger.Warn("file not processed", append(attrs, "error", e.Err)...)
		}
	}
}

// ChanProgress sends every event on a channel. Sends block, so the receiver
// must drain the channel until the batch returns.
type ChanProgress chan<- Event

func (c ChanProgress) Report(e Event) { c <- e }

type nopProgress struct{}

func (nopProgress) Report(Event) {}

// multiProgress fans events out to several sinks in order.
type multiProgress []Progress

func (m multiProgress) Report(e Event) {
	for _, p := range m {
		p.Report(e)
	}
}

// Tee returns a Progress that forwards to every non-nil sink.
func Tee(sinks ...Progress) Progress {
	out := make(multiProgress, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Package warn reports non-fatal deprecation notices.
package warn

import (
	"sync"

	logx "github.com/ije/gox/log"
)

// Sink receives warnings. Emit must not block.
type Sink interface {
	Emit(message string, category string, code string)
}

const DeprecationWarning = "DeprecationWarning"

// Reporter forwards each warning code to its sink at most once until Reset.
type Reporter struct {
	sink    Sink
	lock    sync.Mutex
	emitted map[string]struct{}
}

// NewReporter returns a reporter writing to sink. A nil sink discards
// every warning.
func NewReporter(sink Sink) *Reporter {
	return &Reporter{sink: sink, emitted: map[string]struct{}{}}
}

// Deprecate emits a DeprecationWarning with the given code unless one was
// already emitted.
func (r *Reporter) Deprecate(code string, message string) {
	r.Emit(message, DeprecationWarning, code)
}

func (r *Reporter) Emit(message string, category string, code string) {
	if r == nil {
		return
	}
	r.lock.Lock()
	_, seen := r.emitted[code]
	if !seen {
		r.emitted[code] = struct{}{}
	}
	r.lock.Unlock()
	if !seen && r.sink != nil {
		r.sink.Emit(message, category, code)
	}
}

// Reset forgets the emitted codes.
func (r *Reporter) Reset() {
	r.lock.Lock()
	r.emitted = map[string]struct{}{}
	r.lock.Unlock()
}

// LogSink writes warnings to a logger.
type LogSink struct {
	Logger *logx.Logger
}

func (s LogSink) Emit(message string, category string, code string) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warnf("[%s] %s: %s", code, category, message)
}

// Warning is a recorded warning.
type Warning struct {
	Message  string
	Category string
	Code     string
}

// Recorder keeps every warning it receives.
type Recorder struct {
	lock     sync.Mutex
	Warnings []Warning
}

func (r *Recorder) Emit(message string, category string, code string) {
	r.lock.Lock()
	r.Warnings = append(r.Warnings, Warning{message, category, code})
	r.lock.Unlock()
}

// Count returns the number of warnings recorded with code.
func (r *Recorder) Count(code string) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := 0
	for _, w := range r.Warnings {
		if w.Code == code {
			n++
		}
	}
	return n
}

package logging

import (
	"context"
	"os"
	"runtime/trace"
	"sync"
	"time"
)

// FlightRecorder keeps a ring buffer of recent runtime trace data so a run
// that goes wrong can be diagnosed after the fact. Recording is cheap
// enough to leave on for a whole run; Snapshot dumps the buffer once
// something worth keeping has happened.
//
//	fr := NewFlightRecorder(WithMinAge(30 * time.Second))
//	if err := fr.Start(); err != nil { ... }
//	defer fr.Stop()
//
//	report, err := orch.Run(ctx, queries)
//	if err != nil {
//		fr.Snapshot("aborted_run.trace")
//	}
type FlightRecorder struct {
	recorder *trace.FlightRecorder
	mu       sync.Mutex
	running  bool
	config   trace.FlightRecorderConfig
}

// FlightRecorderOption configures a FlightRecorder.
type FlightRecorderOption func(*FlightRecorder)

// WithMinAge sets how much recent history the trace buffer keeps. The
// default is 10 seconds.
func WithMinAge(d time.Duration) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MinAge = d
	}
}

// WithMaxBytes caps the trace buffer size in bytes and takes precedence
// over MinAge. Zero leaves the cap implementation defined.
func WithMaxBytes(n uint64) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MaxBytes = n
	}
}

// NewFlightRecorder creates a recorder over runtime/trace's flight
// recording, which costs about 1% CPU while armed.
func NewFlightRecorder(opts ...FlightRecorderOption) *FlightRecorder {
	fr := &FlightRecorder{
		config: trace.FlightRecorderConfig{
			MinAge: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(fr)
	}
	fr.recorder = trace.NewFlightRecorder(fr.config)
	return fr
}

// Start begins recording into the ring buffer. Idempotent.
func (fr *FlightRecorder) Start() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.running {
		return nil
	}
	if err := fr.recorder.Start(); err != nil {
		return err
	}
	fr.running = true
	return nil
}

// Stop stops recording. Idempotent.
func (fr *FlightRecorder) Stop() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return
	}
	fr.recorder.Stop()
	fr.running = false
}

// Enabled reports whether the recorder is currently running.
func (fr *FlightRecorder) Enabled() bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.running && fr.recorder.Enabled()
}

// Snapshot writes the current trace buffer to a file. A recorder that is
// not running writes nothing and returns nil.
func (fr *FlightRecorder) Snapshot(filename string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return nil
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fr.recorder.WriteTo(f)
	return err
}

// TraceTask opens a trace task for one high-level operation, such as a
// whole run. Returns the task context and an end function.
func TraceTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

// TraceRegion annotates a code section within a task, such as a single
// query attempt.
//
//	defer TraceRegion(ctx, "attempt")()
func TraceRegion(ctx context.Context, name string) func() {
	region := trace.StartRegion(ctx, name)
	return region.End
}

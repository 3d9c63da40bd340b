package agent

import (
	"context"
	"sync"
)

type recorderKey struct{}

// Recorder collects the names of tools invoked during one agent run. Tool
// choice belongs to the model; the recorder only observes it so callers can
// report which tool answered without validating the name.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

// WithRecorder attaches a fresh recorder to ctx.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, r), r
}

func recorderFrom(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}

// Record notes one tool invocation. Safe on a nil receiver so tools never
// fail when run outside an orchestrated request.
func (r *Recorder) Record(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

// Last returns the most recently invoked tool, or "none".
func (r *Recorder) Last() string {
	if r == nil {
		return "none"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) == 0 {
		return "none"
	}
	return r.names[len(r.names)-1]
}

// Names returns every recorded invocation in order.
func (r *Recorder) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

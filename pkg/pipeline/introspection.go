package pipeline

import (
	"github.com/aretw0/introspection"
)

// PoolState exposes internal state for observability.
type PoolState struct {
	Workers   int   `json:"workers"`
	QueueSize int   `json:"queue_size"`
	Queued    int   `json:"queued"`
	Busy      int   `json:"busy"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Closed    bool  `json:"closed"`
}

// State implements introspection.Introspectable.
func (p *Pool) State() any {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolState{
		Workers:   p.workers,
		QueueSize: p.queueSize,
		Queued:    len(p.queue),
		Busy:      int(p.busy.Load()),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Closed:    p.closed,
	}
}

// ComponentType implements introspection.Component.
func (p *Pool) ComponentType() string {
	return "pool"
}

var _ introspection.Introspectable = (*Pool)(nil)
var _ introspection.Component = (*Pool)(nil)

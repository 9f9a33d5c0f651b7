// Package emitter defines the output backends for collection results.
package emitter

import (
	"context"
	"errors"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// Emitter outputs collection results to a backend.
type Emitter interface {
	// Emit sends one collector's result to the backend.
	Emit(ctx context.Context, result resource.CollectResult) error

	// Close flushes and releases the backend.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to every emitter. A failing backend does not keep the result
// from the others; all failures are returned joined.
func (m *MultiEmitter) Emit(ctx context.Context, result resource.CollectResult) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every emitter and returns all failures joined.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

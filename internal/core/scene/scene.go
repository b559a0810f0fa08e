// Package scene declares the host-side operations the collision core depends
// on: finding an object by name, reading its position and applying a visual
// state. Memory is an in-process implementation used by tests and the CLI.
package scene

import (
	"context"
	"errors"

	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

var ErrNotFound = errors.New("scene: object not found")

// VisualState is opaque to the core, e.g. {"material": "red"}.
type VisualState map[string]string

// ObjectHandle is a resolved scene object.
type ObjectHandle interface {
	Name() string
	Position() signal.Signal[physics.Vec3]
	ApplyVisualState(state VisualState)
}

// Finder resolves objects. A failed lookup returns ErrNotFound, possibly
// wrapped, and never a nil handle with a nil error.
type Finder interface {
	FindObjectByName(ctx context.Context, name string) (ObjectHandle, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, name string) (ObjectHandle, error)

func (f FinderFunc) FindObjectByName(ctx context.Context, name string) (ObjectHandle, error) {
	return f(ctx, name)
}

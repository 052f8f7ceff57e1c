package host

import (
	"errors"

	"github.com/richinsley/goshaderfx/audio"
)

// Error kinds reported by sources and filters. Wrap them with fmt.Errorf and
// test with errors.Is.
var (
	// ErrResourceUnavailable means a render target, texture or program could
	// not be created.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrCompileOrBind means an effect failed to compile or a parameter could
	// not be bound.
	ErrCompileOrBind = errors.New("effect compile or bind failure")
	// ErrThreadTeardown means an audio consumer stopped abnormally.
	ErrThreadTeardown = audio.ErrThreadTeardown

	ErrDuplicateName  = errors.New("a source with this name already exists")
	ErrUnknownFactory = errors.New("unknown source type")
	ErrUnknownSource  = errors.New("no source with this name")
)

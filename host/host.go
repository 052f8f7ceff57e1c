package host

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/richinsley/goshaderfx/gfx"
)

// Host owns the graphics device, the registered source types and the named
// sources. It is created at startup, injected into every factory's Create and
// shut down at exit.
type Host struct {
	dev gfx.Device

	mu        sync.RWMutex
	factories map[string]*Factory
	sources   []*Source
	byName    map[string]*Source
}

func New(dev gfx.Device) *Host {
	return &Host{
		dev:       dev,
		factories: make(map[string]*Factory),
		byName:    make(map[string]*Source),
	}
}

func (h *Host) Device() gfx.Device { return h.dev }

// Register adds a source type.
func (h *Host) Register(f *Factory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f.ID == "" || f.Create == nil {
		return fmt.Errorf("invalid factory %q", f.ID)
	}
	if _, ok := h.factories[f.ID]; ok {
		return fmt.Errorf("factory %q already registered", f.ID)
	}
	h.factories[f.ID] = f
	return nil
}

// Factory returns the registered type id, or nil.
func (h *Host) Factory(id string) *Factory {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.factories[id]
}

// Create instantiates a source of type id. Input sources are registered under
// name, which must be unique; filters are only named and have to be attached
// with AddFilter. settings may be nil.
func (h *Host) Create(id, name string, settings *Settings) (*Source, error) {
	f := h.Factory(id)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFactory, id)
	}
	if f.Kind == KindInput && h.Source(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	s := &Source{
		host:     h,
		id:       uuid.New(),
		factory:  f,
		settings: NewSettings(),
		name:     name,
	}
	if f.Defaults != nil {
		f.Defaults(s.settings)
	}
	if settings != nil {
		s.settings.Apply(settings)
	}

	impl, err := f.Create(h, s, s.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", id, name, err)
	}
	s.impl = impl
	if l, ok := impl.(Loader); ok {
		s.call("load", func() { l.Load(s.settings) })
	}

	if f.Kind == KindInput {
		h.mu.Lock()
		h.sources = append(h.sources, s)
		h.byName[name] = s
		h.mu.Unlock()
	}
	log.Printf("Created %s", s)
	return s, nil
}

// Source looks up an input source by name.
func (h *Host) Source(name string) *Source {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byName[name]
}

// Sources returns the input sources in creation order.
func (h *Host) Sources() []*Source {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Source(nil), h.sources...)
}

// Rename changes a source's name and emits its Renamed event.
func (h *Host) Rename(oldName, newName string) error {
	h.mu.Lock()
	s := h.byName[oldName]
	if s == nil {
		h.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSource, oldName)
	}
	if oldName == newName {
		h.mu.Unlock()
		return nil
	}
	if _, taken := h.byName[newName]; taken {
		h.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}
	delete(h.byName, oldName)
	h.byName[newName] = s
	h.mu.Unlock()

	s.setName(newName)
	s.Renamed.Emit(RenameEvent{Source: s, OldName: oldName, NewName: newName})
	return nil
}

// Remove emits the source's Removed event, unregisters and destroys it.
func (h *Host) Remove(name string) error {
	s := h.Source(name)
	if s == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	s.Removed.Emit(s)
	h.unregister(s)
	s.destroy()
	log.Printf("Removed %s", s)
	return nil
}

func (h *Host) unregister(s *Source) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byName, s.Name())
	for i, cur := range h.sources {
		if cur == s {
			h.sources = append(h.sources[:i:i], h.sources[i+1:]...)
			break
		}
	}
}

// Tick advances every source and its filters by seconds.
func (h *Host) Tick(seconds float64) {
	for _, s := range h.Sources() {
		s.tick(seconds)
	}
}

// RenderTo draws s into a width x height offscreen target and returns the
// texture, or nil when there is nothing to draw.
func (h *Host) RenderTo(rt *gfx.RenderTarget, s *Source, width, height uint32) gfx.Texture {
	if width == 0 || height == 0 {
		return nil
	}
	scope, err := rt.Render(width, height)
	if err != nil {
		log.Printf("Warning: failed to render %s: %v", s, err)
		return nil
	}
	h.dev.PushState(gfx.PassthroughState(width, height))
	s.Render()
	h.dev.PopState()
	scope.Close()
	return rt.Texture()
}

// Shutdown destroys every source, newest first.
func (h *Host) Shutdown() {
	sources := h.Sources()
	for i := len(sources) - 1; i >= 0; i-- {
		s := sources[i]
		h.unregister(s)
		s.destroy()
	}
}

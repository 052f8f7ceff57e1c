package host

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/richinsley/goshaderfx/audio"
	"github.com/richinsley/goshaderfx/gfx"
)

// Kind tells input sources from filters.
type Kind int

const (
	KindInput Kind = iota
	KindFilter
)

// MediaSource is implemented by every source and filter type. All methods are
// called on the render thread.
type MediaSource interface {
	Width() uint32
	Height() uint32
	Update(settings *Settings)
	Activate()
	Deactivate()
	VideoTick(seconds float64)
	// VideoRender draws into the current render target. effect is nil unless
	// the caller wants a custom draw.
	VideoRender(effect gfx.Effect)
}

// Optional capabilities of a MediaSource.
type (
	Loader interface {
		Load(settings *Settings)
	}
	Saver interface {
		Save(settings *Settings)
	}
	PropertiesProvider interface {
		Properties() *Properties
	}
	// ActiveSourceEnumerator lists the sources a source shows, so they are
	// activated with it.
	ActiveSourceEnumerator interface {
		EnumActiveSources(fn func(*Source))
	}
	Destroyer interface {
		Destroy()
	}
)

// Factory describes one source type.
type Factory struct {
	ID   string
	Kind Kind
	Name string
	// Defaults declares setting defaults before Create.
	Defaults func(settings *Settings)
	Create   func(h *Host, self *Source, settings *Settings) (MediaSource, error)
}

// RenameEvent is emitted after a source changed its name.
type RenameEvent struct {
	Source  *Source
	OldName string
	NewName string
}

// Source is the host's handle on a source or filter instance.
type Source struct {
	host     *Host
	id       uuid.UUID
	factory  *Factory
	settings *Settings
	impl     MediaSource

	mu   sync.RWMutex
	name string

	// --- Render thread only ---

	parent    *Source
	filters   []*Source
	active    int
	rendering bool
	destroyed bool
	rt        *gfx.RenderTarget
	lastErr   string

	// --- Events ---

	Destroyed Event[*Source]
	Removed   Event[*Source]
	Renamed   Event[RenameEvent]
	// Audio is emitted on the audio thread for every frame the source outputs.
	Audio Event[*audio.Frame]
}

func (s *Source) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Source) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *Source) UUID() uuid.UUID     { return s.id }
func (s *Source) ID() string          { return s.factory.ID }
func (s *Source) Kind() Kind          { return s.factory.Kind }
func (s *Source) Host() *Host         { return s.host }
func (s *Source) Settings() *Settings { return s.settings }
func (s *Source) Impl() MediaSource   { return s.impl }
func (s *Source) Parent() *Source     { return s.parent }
func (s *Source) Filters() []*Source  { return s.filters }
func (s *Source) Active() bool        { return s.active > 0 }
func (s *Source) IsDestroyed() bool   { return s.destroyed }
func (s *Source) String() string      { return fmt.Sprintf("%s %q", s.factory.ID, s.Name()) }

// BaseWidth is the width of the source itself, ignoring its filters.
func (s *Source) BaseWidth() uint32 {
	if s.impl == nil || s.destroyed {
		return 0
	}
	return s.impl.Width()
}

func (s *Source) BaseHeight() uint32 {
	if s.impl == nil || s.destroyed {
		return 0
	}
	return s.impl.Height()
}

// Width is the width of the source as shown, after its filters.
func (s *Source) Width() uint32 {
	if n := len(s.filters); n > 0 {
		return s.filters[n-1].BaseWidth()
	}
	return s.BaseWidth()
}

func (s *Source) Height() uint32 {
	if n := len(s.filters); n > 0 {
		return s.filters[n-1].BaseHeight()
	}
	return s.BaseHeight()
}

// Update merges changes into the source's settings and hands the result to
// the implementation. changes may be nil.
func (s *Source) Update(changes *Settings) {
	if changes != nil {
		s.settings.Apply(changes)
	}
	s.call("update", func() { s.impl.Update(s.settings) })
}

// Properties returns the source's properties, or nil when it has none.
func (s *Source) Properties() *Properties {
	if p, ok := s.impl.(PropertiesProvider); ok {
		return p.Properties()
	}
	return nil
}

// Save lets the implementation write its state into its settings and returns
// them.
func (s *Source) Save() *Settings {
	if sv, ok := s.impl.(Saver); ok {
		s.call("save", func() { sv.Save(s.settings) })
	}
	return s.settings
}

// Activate marks the source as shown. Activations nest.
func (s *Source) Activate() {
	if s.destroyed {
		return
	}
	s.active++
	if s.active > 1 {
		return
	}
	s.call("activate", s.impl.Activate)
	for _, f := range s.filters {
		f.Activate()
	}
	if e, ok := s.impl.(ActiveSourceEnumerator); ok {
		e.EnumActiveSources(func(child *Source) { child.Activate() })
	}
}

func (s *Source) Deactivate() {
	if s.active == 0 {
		return
	}
	s.active--
	if s.active > 0 || s.destroyed {
		return
	}
	s.call("deactivate", s.impl.Deactivate)
	for _, f := range s.filters {
		f.Deactivate()
	}
	if e, ok := s.impl.(ActiveSourceEnumerator); ok {
		e.EnumActiveSources(func(child *Source) { child.Deactivate() })
	}
}

// AddFilter appends f to the top of the filter chain.
func (s *Source) AddFilter(f *Source) error {
	if f.Kind() != KindFilter {
		return fmt.Errorf("%s is not a filter", f)
	}
	if f.parent != nil {
		return fmt.Errorf("%s already belongs to %s", f, f.parent)
	}
	f.parent = s
	s.filters = append(s.filters, f)
	if s.Active() {
		f.Activate()
	}
	return nil
}

// RemoveFilter detaches f from the chain without destroying it.
func (s *Source) RemoveFilter(f *Source) {
	for i, cur := range s.filters {
		if cur == f {
			s.filters = append(s.filters[:i:i], s.filters[i+1:]...)
			if s.Active() {
				f.Deactivate()
			}
			f.parent = nil
			return
		}
	}
}

// FilterParent is the source a filter is attached to.
func (s *Source) FilterParent() *Source { return s.parent }

// FilterTarget is what a filter draws on top of: the filter below it in the
// chain, or the parent source itself.
func (s *Source) FilterTarget() *Source {
	if s.parent == nil {
		return nil
	}
	for i, f := range s.parent.filters {
		if f == s {
			if i == 0 {
				return s.parent
			}
			return s.parent.filters[i-1]
		}
	}
	return nil
}

// ProcessFilterBegin reports whether the filter has something to draw.
func (s *Source) ProcessFilterBegin() bool {
	t := s.FilterTarget()
	return t != nil && !t.destroyed && t.BaseWidth() > 0 && t.BaseHeight() > 0
}

// ProcessFilterEnd draws the filter's target as a width x height sprite. With
// a nil or default effect the target renders straight into the current
// target; otherwise it is captured first and drawn through effect's "image"
// parameter and "Draw" technique.
func (s *Source) ProcessFilterEnd(effect gfx.Effect, width, height uint32) {
	t := s.FilterTarget()
	if t == nil {
		return
	}
	dev := s.host.Device()
	if effect == nil || effect == dev.DefaultEffect() {
		s.renderBelow()
		return
	}

	tw, th := t.BaseWidth(), t.BaseHeight()
	if s.rt == nil {
		rt, err := gfx.NewRenderTarget(dev, gfx.FormatRGBA, gfx.ZSNone)
		if err != nil {
			s.logErr(fmt.Errorf("%w: %v", ErrResourceUnavailable, err))
			return
		}
		s.rt = rt
	}
	scope, err := s.rt.Render(tw, th)
	if err != nil {
		s.logErr(err)
		return
	}
	dev.PushState(gfx.PassthroughState(tw, th))
	s.renderBelow()
	dev.PopState()
	scope.Close()

	if p := effect.Param("image"); p != nil {
		p.SetTexture(s.rt.Texture())
	}
	if err := effect.Loop("Draw", func() { dev.DrawSprite(width, height) }); err != nil {
		s.logErr(err)
	}
}

// SkipVideoFilter renders the filter's target in place of the filter for
// this frame.
func (s *Source) SkipVideoFilter() { s.renderBelow() }

// renderBelow draws the filter target without its upper filters. For the
// parent that is its own output, for a filter everything up to it.
func (s *Source) renderBelow() {
	if t := s.FilterTarget(); t != nil {
		t.renderOwn()
	}
}

// Render draws the source with its filters into the current render target.
func (s *Source) Render() {
	if n := len(s.filters); n > 0 {
		s.filters[n-1].renderOwn()
		return
	}
	s.renderOwn()
}

// renderOwn calls the implementation's VideoRender, which for a filter pulls
// in everything below it.
func (s *Source) renderOwn() {
	if s.destroyed || s.impl == nil {
		return
	}
	if s.rendering {
		s.logErr(fmt.Errorf("%s renders itself recursively", s))
		return
	}
	s.rendering = true
	defer func() { s.rendering = false }()
	s.call("render", func() { s.impl.VideoRender(nil) })
}

// RenderEffect draws the source's own output through effect, without its
// filters.
func (s *Source) RenderEffect(effect gfx.Effect) {
	if s.destroyed || s.impl == nil || s.rendering {
		return
	}
	s.rendering = true
	defer func() { s.rendering = false }()
	s.call("render", func() { s.impl.VideoRender(effect) })
}

func (s *Source) tick(seconds float64) {
	if s.destroyed {
		return
	}
	s.call("tick", func() { s.impl.VideoTick(seconds) })
	for _, f := range s.filters {
		f.tick(seconds)
	}
}

// OutputAudio publishes a frame to the source's audio listeners. It is called
// on the audio thread.
func (s *Source) OutputAudio(f *audio.Frame) {
	s.Audio.Emit(f)
}

func (s *Source) destroy() {
	if s.destroyed {
		return
	}
	for _, f := range s.filters {
		f.destroy()
	}
	s.filters = nil
	if s.active > 0 {
		s.call("deactivate", s.impl.Deactivate)
		s.active = 0
	}
	if d, ok := s.impl.(Destroyer); ok {
		s.call("destroy", d.Destroy)
	}
	if s.rt != nil {
		s.rt.Destroy()
		s.rt = nil
	}
	s.destroyed = true
	s.Destroyed.Emit(s)
}

// call runs a callback into the implementation, logging a panic instead of
// taking the host down.
func (s *Source) call(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logErr(fmt.Errorf("%s panicked during %s: %v", s, what, r))
		}
	}()
	fn()
}

// logErr logs err unless it repeats the previous message.
func (s *Source) logErr(err error) {
	msg := err.Error()
	if msg == s.lastErr {
		return
	}
	s.lastErr = msg
	log.Printf("Warning: %v", err)
}

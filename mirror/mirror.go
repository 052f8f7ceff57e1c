// Package mirror implements a source that re-emits the video and audio of
// another source, optionally rescaled.
package mirror

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/richinsley/goshaderfx/audio"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

// ID is the factory id of the mirror source.
const ID = "goshaderfx-source-mirror"

// Setting keys.
const (
	KeySource              = "Source.Mirror.Source"
	KeyAudio               = "Source.Mirror.Source.Audio"
	KeyScaling             = "Source.Mirror.Scaling"
	KeyScalingMethod       = "Source.Mirror.Scaling.Method"
	KeyScalingSize         = "Source.Mirror.Scaling.Size"
	KeyScalingKeepOriginal = "Source.Mirror.Scaling.TransformKeepOriginal"
	KeyScalingBounds       = "Source.Mirror.Scaling.Bounds"
	KeyScalingAlignment    = "Source.Mirror.Scaling.Alignment"
)

// Factory registers the mirror source.
func Factory() *host.Factory {
	return &host.Factory{
		ID:   ID,
		Kind: host.KindInput,
		Name: "Source Mirror",
		Defaults: func(s *host.Settings) {
			s.SetDefaultString(KeySource, "")
			s.SetDefaultBool(KeyAudio, false)
			s.SetDefaultBool(KeyScaling, false)
			s.SetDefaultInt(KeyScalingMethod, int64(gfx.FilterBilinear))
			s.SetDefaultString(KeyScalingSize, "1280x720")
			s.SetDefaultBool(KeyScalingKeepOriginal, false)
			s.SetDefaultInt(KeyScalingBounds, int64(BoundsStretch))
			s.SetDefaultInt(KeyScalingAlignment, 1)
		},
		Create: func(h *host.Host, self *host.Source, s *host.Settings) (host.MediaSource, error) {
			return New(h, self, s)
		},
	}
}

// Mirror is one mirror source instance.
type Mirror struct {
	self *host.Source
	host *host.Host
	dev  gfx.Device

	// --- Video, render thread only ---

	name      string
	source    weak.Pointer[host.Source]
	listeners []func(*host.Source)
	capture   *SourceTexture
	scaled    *gfx.RenderTarget
	tex       gfx.Texture
	rendered  bool
	rescale   Rescale

	srcW, srcH    uint32 // bound source size
	width, height uint32 // presented size
	lastErr       string

	// --- Audio ---

	audioEnabled atomic.Bool
	fwd          *audio.Forwarder
	audioMu      sync.Mutex // serializes enabling and disabling
	audioSource  *host.Source
	audioID      host.ListenerID
}

// New creates a mirror for self.
func New(h *host.Host, self *host.Source, settings *host.Settings) (*Mirror, error) {
	capture, err := NewSourceTexture(h.Device())
	if err != nil {
		return nil, err
	}
	scaled, err := gfx.NewRenderTarget(h.Device(), gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		capture.Destroy()
		return nil, fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	m := &Mirror{
		self:    self,
		host:    h,
		dev:     h.Device(),
		capture: capture,
		scaled:  scaled,
	}
	m.fwd = audio.NewForwarder("mirror "+self.Name(), m.forward)
	m.Update(settings)
	return m, nil
}

func (m *Mirror) Width() uint32  { return m.width }
func (m *Mirror) Height() uint32 { return m.height }

// Bound returns the mirrored source, or nil when none is bound.
func (m *Mirror) Bound() *host.Source { return m.source.Value() }

func (m *Mirror) SourceName() string      { return m.name }
func (m *Mirror) Rescale() Rescale        { return m.rescale }
func (m *Mirror) AudioState() audio.State { return m.fwd.State() }

func (m *Mirror) Update(settings *host.Settings) {
	r, err := RescaleFromSettings(settings)
	if err != nil && settings.Bool(KeyScaling) {
		m.logErr(err)
	}
	m.rescale = r

	if name := settings.String(KeySource); name != m.name {
		m.release()
		m.name = name
		if name != "" {
			m.acquire()
		}
	}
	m.setAudio(settings.Bool(KeyAudio))
}

func (m *Mirror) Load(settings *host.Settings) { m.Update(settings) }

// Save writes the current source name, which follows renames.
func (m *Mirror) Save(settings *host.Settings) {
	settings.SetString(KeySource, m.name)
}

func (m *Mirror) Activate()   {}
func (m *Mirror) Deactivate() {}

// EnumActiveSources reports the mirrored source, which is shown whenever
// the mirror is.
func (m *Mirror) EnumActiveSources(fn func(*host.Source)) {
	if src := m.Bound(); src != nil {
		fn(src)
	}
}

func (m *Mirror) Properties() *host.Properties {
	props := host.NewProperties()
	list := props.AddList(KeySource, "Source")
	for _, s := range m.host.Sources() {
		if s != m.self {
			list.AddItem(s.Name(), s.Name())
		}
	}
	props.AddBool(KeyAudio, "Mirror Audio")

	scaling := props.AddBool(KeyScaling, "Rescale")
	scaling.SetModifiedCallback(scalingModified)
	method := props.AddList(KeyScalingMethod, "Scale Filter")
	for f := gfx.FilterPoint; f <= gfx.FilterArea; f++ {
		method.AddItem(f.String(), fmt.Sprint(int(f)))
	}
	props.AddText(KeyScalingSize, "Size")
	props.AddBool(KeyScalingKeepOriginal, "Keep Original Size")
	bounds := props.AddList(KeyScalingBounds, "Bounds")
	for b := BoundsStretch; b <= BoundsMaxOnly; b++ {
		bounds.AddItem(b.String(), fmt.Sprint(int(b)))
	}
	props.AddInt(KeyScalingAlignment, "Alignment", 1, 256, 1)

	scalingModified(props, scaling, m.self.Settings())
	return props
}

func scalingModified(props *host.Properties, _ *host.Property, s *host.Settings) bool {
	on := s.Bool(KeyScaling)
	for _, key := range []string{KeyScalingMethod, KeyScalingSize, KeyScalingKeepOriginal, KeyScalingBounds, KeyScalingAlignment} {
		props.Get(key).SetVisible(on)
	}
	return true
}

// acquire binds the source called m.name if it exists.
func (m *Mirror) acquire() {
	src := m.host.Source(m.name)
	if src == nil {
		return
	}
	if src == m.self {
		m.logErr(fmt.Errorf("mirror %s cannot mirror itself", m.self.Name()))
		return
	}

	m.source = weak.Make(src)
	removed := src.Removed.Add(m.onGone)
	destroyed := src.Destroyed.Add(m.onGone)
	renamed := src.Renamed.Add(m.onRename)
	m.listeners = append(m.listeners, func(s *host.Source) {
		s.Removed.Remove(removed)
		s.Destroyed.Remove(destroyed)
		s.Renamed.Remove(renamed)
	})
	if m.self.Active() {
		src.Activate()
	}
	if m.audioEnabled.Load() {
		m.startAudio(src)
	}
	m.lastErr = ""
	log.Printf("Mirror %s bound to %s", m.self.Name(), src.Name())
}

// release unbinds the source. The name is kept so the source is picked up
// again once it reappears.
func (m *Mirror) release() {
	src := m.source.Value()
	m.source = weak.Pointer[host.Source]{}
	m.tex = nil
	m.srcW, m.srcH, m.width, m.height = 0, 0, 0, 0
	m.stopAudio()
	if src == nil {
		m.listeners = nil
		return
	}
	for _, remove := range m.listeners {
		remove(src)
	}
	m.listeners = nil
	if m.self.Active() && !src.IsDestroyed() {
		src.Deactivate()
	}
}

func (m *Mirror) onGone(src *host.Source) {
	log.Printf("Mirror %s lost %s", m.self.Name(), src.Name())
	m.release()
}

func (m *Mirror) onRename(ev host.RenameEvent) {
	m.name = ev.NewName
	m.self.Settings().SetString(KeySource, ev.NewName)
}

func (m *Mirror) VideoTick(seconds float64) {
	if m.Bound() == nil && m.name != "" {
		m.acquire()
	}
	m.rendered = false

	src := m.Bound()
	if src == nil {
		m.srcW, m.srcH, m.width, m.height = 0, 0, 0, 0
		return
	}
	if m.audioEnabled.Load() && m.fwd.State() == audio.StateStopped {
		// the consumer died on its own
		m.stopAudio()
		m.startAudio(src)
	}
	m.srcW, m.srcH = src.Width(), src.Height()
	m.width, m.height = m.rescale.Size(m.srcW, m.srcH)
	if m.rescale.Enabled && m.rescale.KeepOriginalSize {
		m.width, m.height = m.srcW, m.srcH
	}
}

func (m *Mirror) VideoRender(effect gfx.Effect) {
	src := m.Bound()
	if src == nil || m.width == 0 || m.height == 0 {
		return
	}
	if !m.rendered {
		m.rendered = true
		if err := m.renderFrame(src); err != nil {
			m.tex = nil
			m.logErr(err)
		}
	}
	if m.tex == nil {
		return
	}

	if effect == nil {
		m.dev.DrawTexture(m.tex, m.width, m.height, m.rescale.Filter)
		return
	}
	if p := effect.Param("image"); p != nil {
		p.SetTexture(m.tex)
	}
	if err := effect.Loop("Draw", func() { m.dev.DrawSprite(m.width, m.height) }); err != nil {
		m.logErr(err)
	}
}

// renderFrame captures the source and applies the rescale policy.
func (m *Mirror) renderFrame(src *host.Source) error {
	tex, err := m.capture.Render(src)
	if err != nil {
		return err
	}
	m.tex = tex
	if !m.rescale.Enabled {
		return nil
	}

	w, h := m.rescale.Size(m.srcW, m.srcH)
	scope, err := m.scaled.Render(w, h)
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	m.dev.PushState(gfx.PassthroughState(w, h))
	m.dev.DrawTexture(tex, w, h, m.rescale.Filter)
	m.dev.PopState()
	scope.Close()
	m.tex = m.scaled.Texture()
	return nil
}

// --- Audio ---

// setAudio enables or disables audio mirroring.
func (m *Mirror) setAudio(enabled bool) {
	if m.audioEnabled.Swap(enabled) == enabled {
		return
	}
	if !enabled {
		m.stopAudio()
		return
	}
	if src := m.Bound(); src != nil {
		m.startAudio(src)
	}
}

func (m *Mirror) startAudio(src *host.Source) {
	m.audioMu.Lock()
	defer m.audioMu.Unlock()
	if m.audioSource != nil {
		return
	}
	if err := m.fwd.Start(); err != nil && !errors.Is(err, audio.ErrRunning) {
		m.logErr(err)
		return
	}
	m.audioSource = src
	m.audioID = src.Audio.Add(m.onAudio)
}

// stopAudio unsubscribes from the source, then drains and joins the
// consumer.
func (m *Mirror) stopAudio() {
	m.audioMu.Lock()
	defer m.audioMu.Unlock()
	if m.audioSource == nil {
		return
	}
	m.audioSource.Audio.Remove(m.audioID)
	m.audioSource = nil
	m.joinAudio()
}

// joinAudio drains and joins the consumer and reports how it ended.
func (m *Mirror) joinAudio() {
	stats, err := m.fwd.Stop()
	if err != nil {
		log.Printf("Warning: mirror %s audio stopped: %v", m.self.Name(), err)
	}
	if stats.HighWater >= audio.HighWaterWarning {
		log.Printf("Mirror %s audio queue peaked at %d frames", m.self.Name(), stats.HighWater)
	}
}

// onAudio runs on the source's audio thread.
func (m *Mirror) onAudio(f *audio.Frame) {
	if m.audioEnabled.Load() {
		m.fwd.Submit(f)
	}
}

// forward runs on the consumer goroutine.
func (m *Mirror) forward(f *audio.Frame) error {
	m.self.OutputAudio(f)
	return nil
}

func (m *Mirror) Destroy() {
	m.release()
	m.joinAudio()
	m.capture.Destroy()
	m.scaled.Destroy()
}

func (m *Mirror) logErr(err error) {
	if msg := err.Error(); msg != m.lastErr {
		m.lastErr = msg
		log.Printf("Warning: mirror %s: %v", m.self.Name(), err)
	}
}

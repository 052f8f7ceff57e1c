package effect

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

const (
	KeyFile      = "Shader.File"
	KeyTechnique = "Shader.Technique"

	DefaultTechnique = "Draw"

	// file modification polling period, in seconds of tick time
	reloadInterval = 1.0

	// texture files kept loaded per effect
	textureCacheSize = 16

	effectFilter  = "Effect files (*.effect *.glsl);;All files (*.*)"
	textureFilter = "Images (*.png *.jpg *.jpeg *.bmp *.tif *.tiff *.webp);;All files (*.*)"
)

// ErrNoEffect is returned by Render when no effect is loaded.
var ErrNoEffect = errors.New("no effect loaded")

// Source is an effect loaded from a file and driven by settings. It reloads
// the file when its path or modification time changes.
type Source struct {
	dev   gfx.Device
	owner string

	file       string
	technique  string
	modTime    time.Time
	sinceCheck float64
	fx         gfx.Effect
	err        error

	settings *host.Settings
	textures *lru.Cache[string, gfx.Texture]

	// Valid reports whether a parameter is user editable. Defaults to
	// IsUserEditable on the parameter name.
	Valid func(p *gfx.Param) bool
	// Override runs right before every draw, after settings were applied.
	Override func(fx gfx.Effect)
}

// NewSource creates an empty source. owner names it in log messages.
func NewSource(dev gfx.Device, owner string) *Source {
	textures, _ := lru.NewWithEvict(textureCacheSize, func(_ string, tex gfx.Texture) {
		if d, ok := tex.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	})
	return &Source{
		dev:       dev,
		owner:     owner,
		technique: DefaultTechnique,
		textures:  textures,
	}
}

// Defaults declares the file and technique defaults.
func Defaults(settings *host.Settings, file string) {
	settings.SetDefaultString(KeyFile, file)
	settings.SetDefaultString(KeyTechnique, DefaultTechnique)
}

func (s *Source) Effect() gfx.Effect { return s.fx }
func (s *Source) File() string       { return s.file }
func (s *Source) Technique() string  { return s.technique }

// Err is the last load error, nil when the effect loaded.
func (s *Source) Err() error { return s.err }

func (s *Source) valid(p *gfx.Param) bool {
	if s.Valid != nil {
		return s.Valid(p)
	}
	return IsUserEditable(p.Name())
}

// Update loads the effect named by settings if it changed, declares the
// parameter defaults and applies the parameter values.
func (s *Source) Update(settings *host.Settings) {
	s.technique = settings.String(KeyTechnique)
	if s.technique == "" {
		s.technique = DefaultTechnique
	}
	if file := settings.String(KeyFile); file != s.file || (s.fx == nil && s.err == nil) {
		s.load(file)
	}
	s.settings = settings
	s.declareDefaults(settings)
	s.ApplySettings(settings)
}

func (s *Source) load(file string) {
	if s.fx != nil {
		s.fx.Destroy()
		s.fx = nil
	}
	// textures are read again with the new program
	s.textures.Purge()
	s.file = file
	s.modTime = time.Time{}
	s.sinceCheck = 0
	s.err = nil
	if file == "" {
		s.err = fmt.Errorf("%w: no shader file set", host.ErrCompileOrBind)
		return
	}

	if fi, err := os.Stat(file); err == nil {
		s.modTime = fi.ModTime()
	}
	fx, err := s.dev.LoadEffectFile(file)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", host.ErrCompileOrBind, err)
		log.Printf("Warning: %s failed to load effect %s: %v", s.owner, file, err)
		return
	}
	s.fx = fx
	log.Printf("%s loaded effect %s", s.owner, file)
}

// Tick polls the file's modification time at most once per second and
// reloads it when it changed. It reports whether a reload happened, in which
// case the owner should update from its settings again.
func (s *Source) Tick(seconds float64) bool {
	if s.file == "" {
		return false
	}
	s.sinceCheck += seconds
	if s.sinceCheck < reloadInterval {
		return false
	}
	s.sinceCheck = 0

	fi, err := os.Stat(s.file)
	if err != nil || fi.ModTime().Equal(s.modTime) {
		return false
	}
	log.Printf("%s: %s changed, reloading", s.owner, s.file)
	s.load(s.file)
	return true
}

// ApplySettings copies every user-editable parameter's value from settings.
// Vector components are read from "name[i]" keys.
func (s *Source) ApplySettings(settings *host.Settings) {
	if s.fx == nil {
		return
	}
	for _, p := range s.fx.Params() {
		if !s.valid(p) {
			continue
		}
		name := p.Name()
		switch t := p.Type(); {
		case t == gfx.ParamBool:
			p.SetBool(settings.Bool(name))
		case t == gfx.ParamFloat:
			p.SetFloat(float32(settings.Double(name)))
		case t == gfx.ParamInt:
			p.SetInt(int32(settings.Int(name)))
		case t == gfx.ParamMatrix:
		case t.IsFloat():
			v := make([]float32, t.Components())
			for i := range v {
				v[i] = float32(settings.Double(componentKey(name, i)))
			}
			p.SetFloats(v)
		case t.IsInt():
			v := make([]int32, t.Components())
			for i := range v {
				v[i] = int32(settings.Int(componentKey(name, i)))
			}
			p.SetInts(v)
		case t == gfx.ParamString:
			p.SetString(settings.String(name))
		case t == gfx.ParamTexture:
			if path := settings.String(name); path != "" {
				p.SetTexture(s.texture(path))
			}
		}
	}
}

func (s *Source) declareDefaults(settings *host.Settings) {
	if s.fx == nil {
		return
	}
	for _, p := range s.fx.Params() {
		if !s.valid(p) {
			continue
		}
		name := p.Name()
		switch t := p.Type(); {
		case t == gfx.ParamBool:
			settings.SetDefaultBool(name, p.DefaultBool())
		case t == gfx.ParamFloat:
			settings.SetDefaultDouble(name, float64(p.DefaultFloat()))
		case t == gfx.ParamInt:
			settings.SetDefaultInt(name, int64(p.DefaultInt()))
		case t == gfx.ParamMatrix:
		case t.IsFloat():
			for i, v := range p.DefaultFloats() {
				settings.SetDefaultDouble(componentKey(name, i), float64(v))
			}
		case t.IsInt():
			for i, v := range p.DefaultInts() {
				settings.SetDefaultInt(componentKey(name, i), int64(v))
			}
		case t == gfx.ParamString:
			settings.SetDefaultString(name, p.DefaultString())
		}
	}
}

func componentKey(name string, i int) string { return fmt.Sprintf("%s[%d]", name, i) }

// texture loads path, relative to the effect file when not absolute, and
// keeps the most recently used ones.
func (s *Source) texture(path string) gfx.Texture {
	if !filepath.IsAbs(path) && s.file != "" {
		path = filepath.Join(filepath.Dir(s.file), path)
	}
	if tex, ok := s.textures.Get(path); ok {
		return tex
	}
	tex, err := s.dev.LoadTexture(path)
	if err != nil {
		log.Printf("Warning: %s failed to load texture: %v", s.owner, err)
		return nil
	}
	s.textures.Add(path, tex)
	return tex
}

// Properties adds the file and technique controls and one control per
// user-editable parameter.
func (s *Source) Properties(props *host.Properties) {
	props.AddPath(KeyFile, "Shader File", effectFilter)
	props.AddText(KeyTechnique, "Technique")
	if s.fx == nil {
		return
	}
	for _, p := range s.fx.Params() {
		if !s.valid(p) {
			continue
		}
		name, label := p.Name(), paramLabel(p)
		lo := annotationFloat(p, "minimum", -1000)
		hi := annotationFloat(p, "maximum", 1000)
		switch t := p.Type(); {
		case t == gfx.ParamBool:
			props.AddBool(name, label)
		case t == gfx.ParamFloat:
			props.AddFloat(name, label, lo, hi, annotationFloat(p, "step", 0.01))
		case t == gfx.ParamInt:
			props.AddInt(name, label, int64(lo), int64(hi), int64(annotationFloat(p, "step", 1)))
		case t == gfx.ParamMatrix:
		case t.IsFloat():
			step := annotationFloat(p, "step", 0.01)
			for i := 0; i < t.Components(); i++ {
				props.AddFloat(componentKey(name, i), componentKey(label, i), lo, hi, step)
			}
		case t.IsInt():
			step := int64(annotationFloat(p, "step", 1))
			for i := 0; i < t.Components(); i++ {
				props.AddInt(componentKey(name, i), componentKey(label, i), int64(lo), int64(hi), step)
			}
		case t == gfx.ParamString:
			props.AddText(name, label)
		case t == gfx.ParamTexture:
			props.AddPath(name, label, textureFilter)
		}
	}
}

func paramLabel(p *gfx.Param) string {
	if a, ok := p.Annotation("name"); ok && a.Type() == gfx.ParamString && a.StringValue() != "" {
		return a.StringValue()
	}
	return p.Name()
}

func annotationFloat(p *gfx.Param, name string, def float64) float64 {
	a, ok := p.Annotation(name)
	if !ok {
		return def
	}
	switch t := a.Type(); {
	case t == gfx.ParamFloat:
		return float64(a.Float())
	case t == gfx.ParamInt:
		return float64(a.Int())
	}
	return def
}

// Render applies the settings, runs Override and draws a width x height
// sprite with every pass of the technique.
func (s *Source) Render(width, height uint32) error {
	if s.fx == nil {
		if s.err != nil {
			return s.err
		}
		return ErrNoEffect
	}
	if s.settings != nil {
		s.ApplySettings(s.settings)
	}
	if s.Override != nil {
		s.Override(s.fx)
	}
	if err := s.fx.Loop(s.technique, func() { s.dev.DrawSprite(width, height) }); err != nil {
		return fmt.Errorf("%w: %v", host.ErrCompileOrBind, err)
	}
	return nil
}

// Destroy releases the effect and the cached textures.
func (s *Source) Destroy() {
	if s.fx != nil {
		s.fx.Destroy()
		s.fx = nil
	}
	s.textures.Purge()
}

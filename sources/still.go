// Package sources holds the input sources the demo host composes: a still
// image or solid colour and an audio capture source.
package sources

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

const StillID = "goshaderfx-source-still"

const (
	KeyStillFile   = "Source.Still.File"
	KeyStillColor  = "Source.Still.Color"
	KeyStillWidth  = "Source.Still.Width"
	KeyStillHeight = "Source.Still.Height"
)

// solid fills the sprite with its "color" uniform. The soft backend has a
// built-in program registered under the same name.
const (
	solidName   = "solid"
	solidSource = `uniform vec4 color; //@name="Color"

void main() {
    fragColor = color;
}
`
)

// Still draws an image file, or a solid colour when no file is set.
type Still struct {
	self *host.Source
	dev  gfx.Device

	file    string
	tex     gfx.Texture
	solid   gfx.Effect
	color   [4]float32
	width   uint32
	height  uint32
	lastErr string
}

func StillFactory() *host.Factory {
	return &host.Factory{
		ID:   StillID,
		Kind: host.KindInput,
		Name: "Still",
		Defaults: func(s *host.Settings) {
			s.SetDefaultString(KeyStillFile, "")
			s.SetDefaultString(KeyStillColor, "#ffffffff")
			s.SetDefaultInt(KeyStillWidth, 1280)
			s.SetDefaultInt(KeyStillHeight, 720)
		},
		Create: func(h *host.Host, self *host.Source, s *host.Settings) (host.MediaSource, error) {
			st := &Still{self: self, dev: h.Device()}
			st.Update(s)
			return st, nil
		},
	}
}

// ParseColor reads "#rrggbb" or "#rrggbbaa" into normalized components.
func ParseColor(s string) ([4]float32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return [4]float32{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [4]float32{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	var c [4]float32
	for i := range c {
		c[i] = float32((v>>(24-8*i))&0xff) / 255
	}
	return c, nil
}

func (st *Still) Width() uint32  { return st.width }
func (st *Still) Height() uint32 { return st.height }

func (st *Still) Update(s *host.Settings) {
	c, err := ParseColor(s.String(KeyStillColor))
	if err != nil {
		st.logErr(err)
		c = [4]float32{1, 1, 1, 1}
	}
	st.color = c

	if file := s.String(KeyStillFile); file != st.file {
		st.file = file
		st.tex = nil
		if file != "" {
			tex, err := st.dev.LoadTexture(file)
			if err != nil {
				st.logErr(fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err))
			} else {
				st.tex = tex
				log.Printf("Still %s loaded %s (%dx%d)", st.self.Name(), file, tex.Width(), tex.Height())
			}
		}
	}

	w, h := s.Int(KeyStillWidth), s.Int(KeyStillHeight)
	switch {
	case w > 0 && h > 0:
		st.width, st.height = uint32(w), uint32(h)
	case st.tex != nil:
		st.width, st.height = st.tex.Width(), st.tex.Height()
	default:
		st.width, st.height = 0, 0
	}
}

func (st *Still) Properties() *host.Properties {
	props := host.NewProperties()
	props.AddPath(KeyStillFile, "Image", "Images (*.png *.jpg *.bmp *.tiff *.webp)")
	props.AddText(KeyStillColor, "Colour")
	props.AddInt(KeyStillWidth, "Width", 0, 16384, 1)
	props.AddInt(KeyStillHeight, "Height", 0, 16384, 1)
	return props
}

func (st *Still) Activate()         {}
func (st *Still) Deactivate()       {}
func (st *Still) VideoTick(float64) {}

func (st *Still) VideoRender(effect gfx.Effect) {
	if st.width == 0 || st.height == 0 {
		return
	}
	if st.tex != nil {
		if effect == nil {
			st.dev.DrawTexture(st.tex, st.width, st.height, gfx.FilterBilinear)
			return
		}
		if p := effect.Param("image"); p != nil {
			p.SetTexture(st.tex)
		}
		if err := effect.Loop("Draw", func() { st.dev.DrawSprite(st.width, st.height) }); err != nil {
			st.logErr(err)
		}
		return
	}

	if st.solid == nil {
		fx, err := st.dev.LoadEffectSource(solidName, solidSource)
		if err != nil {
			st.logErr(fmt.Errorf("%w: %v", host.ErrCompileOrBind, err))
			return
		}
		st.solid = fx
	}
	if p := st.solid.Param("color"); p != nil {
		p.SetFloat4(st.color[0], st.color[1], st.color[2], st.color[3])
	}
	if err := st.solid.Loop("Draw", func() { st.dev.DrawSprite(st.width, st.height) }); err != nil {
		st.logErr(err)
	}
}

func (st *Still) Destroy() {
	if st.solid != nil {
		st.solid.Destroy()
		st.solid = nil
	}
	st.tex = nil
}

func (st *Still) logErr(err error) {
	if msg := err.Error(); msg != st.lastErr {
		st.lastErr = msg
		log.Printf("Warning: still %s: %v", st.self.Name(), err)
	}
}

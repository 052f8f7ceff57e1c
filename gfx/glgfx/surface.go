package glgfx

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderfx/gfx"
)

// Texture is a GL 2D texture.
type Texture struct {
	id            uint32
	width, height uint32
	format        gfx.ColorFormat
	filter        gfx.ScaleFilter
	mipmapped     bool
}

func (t *Texture) Width() uint32           { return t.width }
func (t *Texture) Height() uint32          { return t.height }
func (t *Texture) Format() gfx.ColorFormat { return t.format }
func (t *Texture) ID() uint32              { return t.id }

func (t *Texture) Destroy() {
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}

func (t *Texture) setFilter(f gfx.ScaleFilter) {
	if t.filter == f && (f != gfx.FilterArea || t.mipmapped) {
		return
	}
	minFilter, magFilter := int32(gl.LINEAR), int32(gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	switch f {
	case gfx.FilterPoint:
		minFilter, magFilter = gl.NEAREST, gl.NEAREST
	case gfx.FilterArea:
		gl.GenerateMipmap(gl.TEXTURE_2D)
		t.mipmapped = true
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	t.filter = f
}

// surface is an FBO with two colour textures used alternately, the way a
// double-buffered pass keeps the previous frame readable while the next one
// is drawn, plus an optional depth/stencil renderbuffer.
type surface struct {
	dev           *Device
	format        gfx.ColorFormat
	zs            gfx.ZStencilFormat
	fbo           uint32
	depthStencil  uint32
	texs          [2]*Texture
	writeIndex    int
	width, height uint32
	bound         bool
}

func (s *surface) Begin(width, height uint32) error {
	if width == 0 || height == 0 {
		return errors.New("surface has a zero dimension")
	}
	if s.bound {
		return errors.New("surface already bound")
	}
	if s.fbo == 0 {
		gl.GenFramebuffers(1, &s.fbo)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)

	tex := s.texs[s.writeIndex]
	if tex == nil {
		tex = &Texture{format: s.format, filter: gfx.FilterBilinear}
		gl.GenTextures(1, &tex.id)
		s.texs[s.writeIndex] = tex
	}
	if tex.width != width || tex.height != height {
		internalFormat, pixelType := int32(gl.RGBA8), uint32(gl.UNSIGNED_BYTE)
		if s.format == gfx.FormatRGBA16F {
			internalFormat, pixelType = gl.RGBA16F, gl.FLOAT
		}
		gl.BindTexture(gl.TEXTURE_2D, tex.id)
		gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(width), int32(height), 0, gl.RGBA, pixelType, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.BindTexture(gl.TEXTURE_2D, 0)
		tex.width, tex.height = width, height
		tex.filter, tex.mipmapped = gfx.FilterBilinear, false
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex.id, 0)

	if s.zs == gfx.ZS24S8 && (s.width != width || s.height != height || s.depthStencil == 0) {
		if s.depthStencil == 0 {
			gl.GenRenderbuffers(1, &s.depthStencil)
		}
		gl.BindRenderbuffer(gl.RENDERBUFFER, s.depthStencil)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(width), int32(height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, s.depthStencil)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}
	s.width, s.height = width, height

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		s.dev.bindTop()
		return fmt.Errorf("framebuffer is not complete: 0x%x", status)
	}

	s.bound = true
	s.dev.targets = append(s.dev.targets, s)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
	return nil
}

func (s *surface) End() gfx.Texture {
	if !s.bound {
		return nil
	}
	s.bound = false
	s.dev.targets = s.dev.targets[:len(s.dev.targets)-1]
	s.dev.bindTop()
	tex := s.texs[s.writeIndex]
	s.writeIndex ^= 1
	return tex
}

func (s *surface) Destroy() {
	if s.fbo != 0 {
		gl.DeleteFramebuffers(1, &s.fbo)
	}
	if s.depthStencil != 0 {
		gl.DeleteRenderbuffers(1, &s.depthStencil)
	}
	for i, t := range s.texs {
		if t != nil {
			t.Destroy()
			s.texs[i] = nil
		}
	}
	s.fbo, s.depthStencil = 0, 0
}

// bindTop rebinds the draw destination below the one just released.
func (d *Device) bindTop() {
	if n := len(d.targets); n > 0 {
		t := d.targets[n-1]
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		gl.Viewport(0, 0, int32(t.width), int32(t.height))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, d.width, d.height)
}

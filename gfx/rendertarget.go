package gfx

import (
	"errors"
	"fmt"
)

// ErrScopeActive is returned when a render scope is requested on a target
// that already has one open.
var ErrScopeActive = errors.New("render target already has an active scope")

// RenderTarget is an owned offscreen colour buffer with scoped rendering.
type RenderTarget struct {
	surface Surface
	format  ColorFormat
	zs      ZStencilFormat
	scope   *RenderScope
	texture Texture
	width   uint32
	height  uint32
}

// RenderScope is an open render into a RenderTarget. Close it exactly once.
type RenderScope struct {
	rt     *RenderTarget
	closed bool
}

// NewRenderTarget creates a render target backed by a surface of dev.
func NewRenderTarget(dev Device, format ColorFormat, zs ZStencilFormat) (*RenderTarget, error) {
	s, err := dev.NewSurface(format, zs)
	if err != nil {
		return nil, fmt.Errorf("failed to create render surface: %w", err)
	}
	return &RenderTarget{surface: s, format: format, zs: zs}, nil
}

// Render binds the target as the draw destination at width x height and
// clears it. The previous texture is invalid until the scope closes.
func (rt *RenderTarget) Render(width, height uint32) (*RenderScope, error) {
	if rt.scope != nil {
		return nil, ErrScopeActive
	}
	if err := rt.surface.Begin(width, height); err != nil {
		return nil, fmt.Errorf("failed to begin render at %dx%d: %w", width, height, err)
	}
	rt.texture = nil
	rt.width, rt.height = width, height
	rt.scope = &RenderScope{rt: rt}
	return rt.scope, nil
}

// Close ends the scope and publishes the rendered texture.
func (s *RenderScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.rt.texture = s.rt.surface.End()
	s.rt.scope = nil
}

// Texture returns the most recently completed render, or nil before the first
// one or while a scope is open.
func (rt *RenderTarget) Texture() Texture {
	if rt.scope != nil {
		return nil
	}
	return rt.texture
}

// Size is the size of the last render.
func (rt *RenderTarget) Size() (uint32, uint32) { return rt.width, rt.height }

// Active reports whether a scope is open.
func (rt *RenderTarget) Active() bool { return rt.scope != nil }

func (rt *RenderTarget) Destroy() {
	if rt.scope != nil {
		rt.scope.Close()
	}
	rt.surface.Destroy()
	rt.texture = nil
}

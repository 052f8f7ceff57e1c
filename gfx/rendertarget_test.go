package gfx

import (
	"errors"
	"testing"
)

type fakeTexture struct{ w, h uint32 }

func (t *fakeTexture) Width() uint32       { return t.w }
func (t *fakeTexture) Height() uint32      { return t.h }
func (t *fakeTexture) Format() ColorFormat { return FormatRGBA }

type fakeSurface struct {
	begins    int
	w, h      uint32
	destroyed bool
}

func (s *fakeSurface) Begin(w, h uint32) error {
	if w == 0 || h == 0 {
		return errors.New("empty")
	}
	s.begins++
	s.w, s.h = w, h
	return nil
}

func (s *fakeSurface) End() Texture { return &fakeTexture{s.w, s.h} }
func (s *fakeSurface) Destroy()     { s.destroyed = true }

func TestRenderTargetScope(t *testing.T) {
	s := &fakeSurface{}
	rt := &RenderTarget{surface: s}

	if rt.Texture() != nil {
		t.Fatal("texture must be nil before the first render")
	}

	scope, err := rt.Render(320, 240)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rt.Texture() != nil {
		t.Error("texture must be nil while a scope is open")
	}
	if _, err := rt.Render(10, 10); !errors.Is(err, ErrScopeActive) {
		t.Errorf("second scope: got %v, want ErrScopeActive", err)
	}
	scope.Close()
	scope.Close()

	tex := rt.Texture()
	if tex == nil || tex.Width() != 320 || tex.Height() != 240 {
		t.Fatalf("texture after close = %v", tex)
	}
	if s.begins != 1 {
		t.Errorf("surface began %d times, want 1", s.begins)
	}

	if _, err := rt.Render(0, 10); err == nil {
		t.Error("zero sized render should fail")
	}
	if rt.Active() {
		t.Error("failed render left a scope open")
	}

	rt.Destroy()
	if !s.destroyed {
		t.Error("surface not destroyed")
	}
}

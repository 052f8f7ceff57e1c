package soft

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/goshaderfx/gfx"
)

func TestSolidFillThroughRenderTarget(t *testing.T) {
	d := New(8, 8)
	rt, err := gfx.NewRenderTarget(d, gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		t.Fatalf("NewRenderTarget: %v", err)
	}
	fx, err := d.LoadEffectSource(SolidProgramName, "")
	if err != nil {
		t.Fatalf("load solid: %v", err)
	}
	fx.Param("color").SetFloat4(1, 0, 0, 1)

	scope, err := rt.Render(4, 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := fx.Loop("Draw", func() { d.DrawSprite(4, 2) }); err != nil {
		t.Fatalf("Loop: %v", err)
	}
	scope.Close()

	pix, err := d.ReadPixels(rt.Texture())
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if len(pix) != 4*2*4 {
		t.Fatalf("got %d bytes", len(pix))
	}
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != 255 || pix[i+1] != 0 || pix[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque red", i/4, pix[i:i+4])
		}
	}
	if s := d.Stats(); s.Sprites != 1 || s.ScopesOpened != 1 || s.LastSpriteW != 4 || s.LastSpriteH != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLoopUnknownTechnique(t *testing.T) {
	d := New(1, 1)
	if err := d.DefaultEffect().Loop("Nope", func() {}); !errors.Is(err, gfx.ErrNoTechnique) {
		t.Errorf("got %v, want ErrNoTechnique", err)
	}
}

func TestLoadEffectFile(t *testing.T) {
	d := New(1, 1)
	path := filepath.Join(t.TempDir(), "fx.effect")
	if _, err := d.LoadEffectFile(path); err == nil {
		t.Fatal("missing file should fail")
	}
	if err := os.WriteFile(path, []byte("// test"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.LoadEffectFile(path); err == nil {
		t.Fatal("unregistered program should fail")
	}
	d.Register(path, EffectSpec{Err: errors.New("syntax error")})
	if _, err := d.LoadEffectFile(path); err == nil {
		t.Fatal("program with a compile error should fail")
	}
	d.Register(path, solidProgram())
	if _, err := d.LoadEffectFile(path); err != nil {
		t.Fatalf("LoadEffectFile: %v", err)
	}
	if got := d.Stats().EffectLoads; got != 3 {
		t.Errorf("EffectLoads = %d, want 3", got)
	}
}

func TestDrawTextureScales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	d := New(6, 6)
	for _, f := range []gfx.ScaleFilter{gfx.FilterPoint, gfx.FilterBilinear, gfx.FilterBicubic, gfx.FilterLanczos, gfx.FilterArea} {
		d.DrawTexture(NewTexture(src), 6, 6, f)
		if got := d.Backbuffer().RGBAAt(3, 3); got.A == 0 {
			t.Errorf("%s: center pixel not drawn", f)
		}
	}
}

func TestLoadTexture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	img := image.NewRGBA(image.Rect(0, 0, 3, 5))
	img.SetRGBA(1, 1, color.RGBA{10, 20, 30, 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tex, err := New(1, 1).LoadTexture(path)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	if tex.Width() != 3 || tex.Height() != 5 {
		t.Fatalf("size = %dx%d", tex.Width(), tex.Height())
	}
	if c := tex.(*Texture).Image().RGBAAt(1, 1); c != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("pixel = %v", c)
	}
}

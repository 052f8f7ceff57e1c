package sources

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/goshaderfx/gfx/soft"
	"github.com/richinsley/goshaderfx/host"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want [4]float32
		ok   bool
	}{
		{"#ff0000", [4]float32{1, 0, 0, 1}, true},
		{"00ff0080", [4]float32{0, 1, 0, 128.0 / 255}, true},
		{" #000000ff ", [4]float32{0, 0, 0, 1}, true},
		{"#fff", [4]float32{}, false},
		{"#gg0000", [4]float32{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseColor(%q) error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStillSolid(t *testing.T) {
	dev := soft.New(64, 64)
	h := host.New(dev)
	h.Register(StillFactory())

	s := host.NewSettings()
	s.SetString(KeyStillColor, "#00ff00")
	s.SetInt(KeyStillWidth, 10)
	s.SetInt(KeyStillHeight, 5)
	src, err := h.Create(StillID, "green", s)
	if err != nil {
		t.Fatal(err)
	}
	if src.Width() != 10 || src.Height() != 5 {
		t.Fatalf("size %dx%d", src.Width(), src.Height())
	}
	src.Render()
	if got := dev.Backbuffer().RGBAAt(9, 4); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("pixel %v", got)
	}
	if got := dev.Backbuffer().RGBAAt(10, 4); got.A != 0 {
		t.Errorf("drew past the source: %v", got)
	}
}

func TestStillImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(3, 1, color.RGBA{255, 0, 0, 255})
	path := filepath.Join(t.TempDir(), "still.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dev := soft.New(16, 16)
	h := host.New(dev)
	h.Register(StillFactory())
	s := host.NewSettings()
	s.SetString(KeyStillFile, path)
	s.SetInt(KeyStillWidth, 0)
	src, err := h.Create(StillID, "image", s)
	if err != nil {
		t.Fatal(err)
	}
	if src.Width() != 4 || src.Height() != 2 {
		t.Fatalf("size %dx%d, want the image size", src.Width(), src.Height())
	}
	src.Render()
	if got := dev.Backbuffer().RGBAAt(3, 1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel %v", got)
	}

	changes := host.NewSettings()
	changes.SetString(KeyStillFile, filepath.Join(t.TempDir(), "missing.png"))
	src.Update(changes)
	if src.Width() != 0 {
		t.Error("missing image kept a size")
	}
	src.Render()
}

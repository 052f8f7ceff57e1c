package mirror

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

// BoundsType decides how content is fitted into the rescale size.
type BoundsType int

const (
	BoundsStretch       BoundsType = iota // exactly the rescale size
	BoundsScaleInner                      // fit inside, keep aspect
	BoundsScaleOuter                      // cover, keep aspect
	BoundsScaleToWidth                    // match the width, keep aspect
	BoundsScaleToHeight                   // match the height, keep aspect
	BoundsMaxOnly                         // fit inside, never enlarge
)

var boundsNames = []string{"Stretch", "Scale Inner", "Scale Outer", "Scale to Width", "Scale to Height", "Max Only"}

func (b BoundsType) String() string {
	if b >= 0 && int(b) < len(boundsNames) {
		return boundsNames[b]
	}
	return "unknown"
}

// Rescale is the mirror's output scaling policy.
type Rescale struct {
	Enabled bool
	Width   uint32
	Height  uint32
	// KeepOriginalSize presents the rescaled image at the source's own size.
	KeepOriginalSize bool
	Filter           gfx.ScaleFilter
	Bounds           BoundsType
	// Alignment rounds the output size down to a multiple of it.
	Alignment uint32
}

// Size returns the size content of width x height is rescaled to. A zero
// input yields zero; otherwise both dimensions are at least 1.
func (r Rescale) Size(width, height uint32) (uint32, uint32) {
	if width == 0 || height == 0 {
		return 0, 0
	}
	if !r.Enabled || r.Width == 0 || r.Height == 0 {
		return width, height
	}

	sx := float64(r.Width) / float64(width)
	sy := float64(r.Height) / float64(height)
	var w, h float64
	switch r.Bounds {
	case BoundsScaleInner:
		s := math.Min(sx, sy)
		w, h = float64(width)*s, float64(height)*s
	case BoundsScaleOuter:
		s := math.Max(sx, sy)
		w, h = float64(width)*s, float64(height)*s
	case BoundsScaleToWidth:
		w, h = float64(r.Width), float64(height)*sx
	case BoundsScaleToHeight:
		w, h = float64(width)*sy, float64(r.Height)
	case BoundsMaxOnly:
		s := math.Min(1, math.Min(sx, sy))
		w, h = float64(width)*s, float64(height)*s
	default:
		w, h = float64(r.Width), float64(r.Height)
	}
	return align(w, r.Alignment), align(h, r.Alignment)
}

func align(v float64, a uint32) uint32 {
	n := uint32(math.Floor(v + 1e-9))
	if a > 1 {
		n -= n % a
	}
	if n < 1 {
		n = 1
	}
	return n
}

var sizePattern = regexp.MustCompile(`^\s*(\d+)\s*[xX]\s*(\d+)\s*$`)

// ParseSize reads a "WIDTHxHEIGHT" string.
func ParseSize(s string) (uint32, uint32, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("invalid size %q, dimensions must be positive", s)
	}
	return uint32(w), uint32(h), nil
}

// RescaleFromSettings reads the scaling settings. A size that does not parse
// turns rescaling off.
func RescaleFromSettings(s *host.Settings) (Rescale, error) {
	r := Rescale{
		Enabled:          s.Bool(KeyScaling),
		KeepOriginalSize: s.Bool(KeyScalingKeepOriginal),
		Filter:           gfx.ScaleFilter(s.Int(KeyScalingMethod)),
		Bounds:           BoundsType(s.Int(KeyScalingBounds)),
		Alignment:        uint32(max(s.Int(KeyScalingAlignment), 1)),
	}
	if r.Filter < gfx.FilterPoint || r.Filter > gfx.FilterArea {
		r.Filter = gfx.FilterBilinear
	}
	if r.Bounds < BoundsStretch || r.Bounds > BoundsMaxOnly {
		r.Bounds = BoundsStretch
	}
	w, h, err := ParseSize(s.String(KeyScalingSize))
	if err != nil {
		r.Enabled = false
		return r, err
	}
	r.Width, r.Height = w, h
	return r, nil
}

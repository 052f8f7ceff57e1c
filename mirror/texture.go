package mirror

import (
	"fmt"

	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

// SourceTexture renders a source with its filters into an offscreen texture.
type SourceTexture struct {
	dev gfx.Device
	rt  *gfx.RenderTarget
}

func NewSourceTexture(dev gfx.Device) (*SourceTexture, error) {
	rt, err := gfx.NewRenderTarget(dev, gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	return &SourceTexture{dev: dev, rt: rt}, nil
}

// Render draws src at its shown size and returns the texture.
func (st *SourceTexture) Render(src *host.Source) (gfx.Texture, error) {
	w, h := src.Width(), src.Height()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: %s has no size", host.ErrResourceUnavailable, src)
	}
	scope, err := st.rt.Render(w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	st.dev.PushState(gfx.PassthroughState(w, h))
	src.Render()
	st.dev.PopState()
	scope.Close()
	return st.rt.Texture(), nil
}

func (st *SourceTexture) Destroy() { st.rt.Destroy() }

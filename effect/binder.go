// Package effect binds host state to compiled effects: the reserved image
// parameters every filter program may declare, and the user parameters that
// are driven from settings.
package effect

import "github.com/richinsley/goshaderfx/gfx"

// Reserved parameter names. They are set by the filter on every draw and are
// never exposed to the user.
const (
	ImageSource      = "ImageSource"       // texture, the captured input
	ImageSourceSize  = "ImageSource_Size"  // float2, input size in pixels
	ImageSourceTexel = "ImageSource_Texel" // float2, 1/input size
	ImageTargetSize  = "ImageTarget_Size"  // float2, output size in pixels
	ImageTargetTexel = "ImageTarget_Texel" // float2, 1/output size
)

var reserved = map[string]bool{
	ImageSource:      true,
	ImageSourceSize:  true,
	ImageSourceTexel: true,
	ImageTargetSize:  true,
	ImageTargetTexel: true,
}

// IsUserEditable reports whether a parameter is driven by settings rather
// than by Bind.
func IsUserEditable(name string) bool { return !reserved[name] }

// BindState is what Bind writes into the reserved parameters.
type BindState struct {
	Source                    gfx.Texture
	SourceWidth, SourceHeight uint32
	TargetWidth, TargetHeight uint32
}

// Bind sets the reserved parameters fx declares. A parameter of another type
// than expected is left alone, as is a texel size whose dimension is zero.
func Bind(fx gfx.Effect, st BindState) {
	if p := fx.Param(ImageSource); p != nil && p.Type() == gfx.ParamTexture {
		p.SetTexture(st.Source)
	}
	setSize(fx.Param(ImageSourceSize), st.SourceWidth, st.SourceHeight)
	setTexel(fx.Param(ImageSourceTexel), st.SourceWidth, st.SourceHeight)
	setSize(fx.Param(ImageTargetSize), st.TargetWidth, st.TargetHeight)
	setTexel(fx.Param(ImageTargetTexel), st.TargetWidth, st.TargetHeight)
}

func setSize(p *gfx.Param, w, h uint32) {
	if p == nil || p.Type() != gfx.ParamFloat2 {
		return
	}
	p.SetFloat2(float32(w), float32(h))
}

func setTexel(p *gfx.Param, w, h uint32) {
	if p == nil || p.Type() != gfx.ParamFloat2 || w == 0 || h == 0 {
		return
	}
	p.SetFloat2(1/float32(w), 1/float32(h))
}

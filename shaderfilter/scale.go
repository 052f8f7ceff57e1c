package shaderfilter

import "github.com/richinsley/goshaderfx/host"

// Setting keys of the output scale.
const (
	KeyScaleLocked = "Filter.Shader.Scale.Locked"
	KeyScale       = "Filter.Shader.Scale.Scale"
	KeyScaleWidth  = "Filter.Shader.Scale.Width"
	KeyScaleHeight = "Filter.Shader.Scale.Height"

	minScale  = 0.01
	maxScale  = 5.0
	scaleStep = 0.01
)

// ScaleState is the factor the shaded output is scaled by relative to the
// filter's input. When Locked, Width and Height equal Uniform.
type ScaleState struct {
	Locked  bool
	Uniform float64
	Width   float64
	Height  float64
}

// ScaleFromSettings reads the scale settings.
func ScaleFromSettings(s *host.Settings) ScaleState {
	st := ScaleState{
		Locked:  s.Bool(KeyScaleLocked),
		Uniform: s.Double(KeyScale),
	}
	if st.Locked {
		st.Width, st.Height = st.Uniform, st.Uniform
	} else {
		st.Width = s.Double(KeyScaleWidth)
		st.Height = s.Double(KeyScaleHeight)
	}
	return st
}

// Apply returns the scaled size of a width x height input.
func (st ScaleState) Apply(width, height uint32) (uint32, uint32) {
	return uint32(float64(width) * st.Width), uint32(float64(height) * st.Height)
}

func scaleDefaults(s *host.Settings) {
	s.SetDefaultBool(KeyScaleLocked, true)
	s.SetDefaultDouble(KeyScale, 1.0)
	s.SetDefaultDouble(KeyScaleWidth, 1.0)
	s.SetDefaultDouble(KeyScaleHeight, 1.0)
}

func scaleProperties(props *host.Properties) {
	lock := props.AddBool(KeyScaleLocked, "Lock Scale")
	lock.SetModifiedCallback(scaleLockModified)
	props.AddFloat(KeyScale, "Scale", minScale, maxScale, scaleStep)
	props.AddFloat(KeyScaleWidth, "Width Scale", minScale, maxScale, scaleStep)
	props.AddFloat(KeyScaleHeight, "Height Scale", minScale, maxScale, scaleStep)
}

// scaleLockModified shows the uniform scale when locked and the per-axis
// scales otherwise.
func scaleLockModified(props *host.Properties, _ *host.Property, s *host.Settings) bool {
	locked := s.Bool(KeyScaleLocked)
	props.Get(KeyScale).SetVisible(locked)
	props.Get(KeyScaleWidth).SetVisible(!locked)
	props.Get(KeyScaleHeight).SetVisible(!locked)
	return true
}

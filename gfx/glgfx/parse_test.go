package glgfx

import (
	"strings"
	"testing"

	"github.com/richinsley/goshaderfx/gfx"
)

const testSource = `//@technique Draw
//@technique Blur
uniform sampler2D ImageSource;
uniform float radius; //@name="Blur Radius" minimum=0 maximum=32 step=0.5 default=4
uniform ivec2 taps; //@minimum=1 default=3,5
uniform highp vec3 tint; //@default=1,0.5,0.25,9
void main() {}
`

func TestParseSource(t *testing.T) {
	info := parseSource(testSource)

	if strings.Join(info.techniques, ",") != "Draw,Blur" {
		t.Errorf("techniques = %v", info.techniques)
	}
	if _, ok := info.uniforms["ImageSource"]; ok {
		t.Error("uniform without directive comment should not be listed")
	}

	radius := info.uniforms["radius"]
	if len(radius.annotations) != 4 {
		t.Fatalf("radius annotations = %+v", radius.annotations)
	}
	if a := radius.annotations[0]; a.Name != "name" || a.Type != gfx.ParamString || a.String != "Blur Radius" {
		t.Errorf("name annotation = %+v", a)
	}
	if a := radius.annotations[3]; a.Name != "step" || a.Type != gfx.ParamFloat || a.Floats[0] != 0.5 {
		t.Errorf("step annotation = %+v", a)
	}

	taps := info.uniforms["taps"]
	if a := taps.annotations[0]; a.Type != gfx.ParamInt || a.Ints[0] != 1 {
		t.Errorf("int uniform annotation = %+v", a)
	}

	spec := gfx.ParamSpec{Name: "taps", Type: gfx.ParamInt2}
	applyDefaults(&spec, taps.defaults)
	if len(spec.Ints) != 2 || spec.Ints[0] != 3 || spec.Ints[1] != 5 {
		t.Errorf("taps defaults = %v", spec.Ints)
	}

	spec = gfx.ParamSpec{Name: "tint", Type: gfx.ParamFloat3}
	applyDefaults(&spec, info.uniforms["tint"].defaults)
	if len(spec.Floats) != 3 || spec.Floats[2] != 0.25 {
		t.Errorf("tint defaults = %v", spec.Floats)
	}
}

func TestParseSourceDefaultTechnique(t *testing.T) {
	info := parseSource("void main() {}")
	if len(info.techniques) != 1 || info.techniques[0] != "Draw" {
		t.Errorf("techniques = %v", info.techniques)
	}
	src := techniqueSource("void main() {}", "Draw")
	if !strings.Contains(src, "#define TECHNIQUE_Draw 1") || !strings.HasPrefix(src, "#version 300 es") {
		t.Errorf("technique source:\n%s", src)
	}
}

package glgfx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/richinsley/goshaderfx/gfx"
)

// Effect files are WebGL2 fragment shaders with two kinds of directive
// comments:
//
//	//@technique Blur
//	uniform float radius; //@name="Radius" minimum=0 maximum=32 step=0.5 default=4
//
// Each technique is compiled separately with TECHNIQUE_<name> defined. A file
// without technique directives has the single technique "Draw".

var (
	techniqueRe  = regexp.MustCompile(`(?m)^\s*//@technique\s+(\w+)\s*$`)
	uniformRe    = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*;\s*//@(.*)$`)
	annotationRe = regexp.MustCompile(`(\w+)\s*=\s*("[^"]*"|\S+)`)
)

const defaultTechnique = "Draw"

type uniformInfo struct {
	glslType    string
	annotations []gfx.ParamSpec
	defaults    []string
}

type sourceInfo struct {
	techniques []string
	uniforms   map[string]uniformInfo
}

func parseSource(src string) sourceInfo {
	info := sourceInfo{uniforms: make(map[string]uniformInfo)}
	seen := make(map[string]bool)
	for _, m := range techniqueRe.FindAllStringSubmatch(src, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			info.techniques = append(info.techniques, m[1])
		}
	}
	if len(info.techniques) == 0 {
		info.techniques = []string{defaultTechnique}
	}

	for _, m := range uniformRe.FindAllStringSubmatch(src, -1) {
		u := uniformInfo{glslType: m[1]}
		for _, a := range annotationRe.FindAllStringSubmatch(m[3], -1) {
			key, raw := a[1], a[2]
			if key == "default" {
				u.defaults = strings.Split(raw, ",")
				continue
			}
			u.annotations = append(u.annotations, annotationSpec(key, raw, u.glslType))
		}
		info.uniforms[m[2]] = u
	}
	return info
}

// annotationSpec types an annotation: quoted values are strings, numeric
// values take the base type of the uniform they annotate.
func annotationSpec(key, raw, glslType string) gfx.ParamSpec {
	if strings.HasPrefix(raw, `"`) {
		return gfx.ParamSpec{Name: key, Type: gfx.ParamString, String: strings.Trim(raw, `"`)}
	}
	switch {
	case strings.HasPrefix(glslType, "int") || strings.HasPrefix(glslType, "ivec"):
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
			return gfx.ParamSpec{Name: key, Type: gfx.ParamInt, Ints: []int32{int32(v)}}
		}
	case glslType == "bool":
		if v, err := strconv.ParseBool(raw); err == nil {
			return gfx.ParamSpec{Name: key, Type: gfx.ParamBool, Bool: v}
		}
	}
	if v, err := strconv.ParseFloat(raw, 32); err == nil {
		return gfx.ParamSpec{Name: key, Type: gfx.ParamFloat, Floats: []float32{float32(v)}}
	}
	return gfx.ParamSpec{Name: key, Type: gfx.ParamString, String: raw}
}

// applyDefaults fills the default value of spec from the default annotation.
func applyDefaults(spec *gfx.ParamSpec, defaults []string) {
	for _, d := range defaults {
		d = strings.TrimSpace(d)
		switch {
		case spec.Type == gfx.ParamBool:
			spec.Bool, _ = strconv.ParseBool(d)
		case spec.Type.IsInt():
			v, _ := strconv.ParseInt(d, 10, 32)
			spec.Ints = append(spec.Ints, int32(v))
		case spec.Type.IsFloat():
			v, _ := strconv.ParseFloat(d, 32)
			spec.Floats = append(spec.Floats, float32(v))
		case spec.Type == gfx.ParamString:
			spec.String = d
		}
	}
	if n := spec.Type.Components(); len(spec.Floats) > n {
		spec.Floats = spec.Floats[:n]
	}
	if n := spec.Type.Components(); len(spec.Ints) > n {
		spec.Ints = spec.Ints[:n]
	}
}

package glgfx

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/translator"
)

// program is one compiled technique of an effect.
type program struct {
	id          uint32
	projLoc     int32
	sizeLoc     int32
	viewSizeLoc int32
	locs        map[string]int32
}

// Effect is a set of GL programs, one per technique, sharing one parameter
// table.
type Effect struct {
	dev        *Device
	name       string
	params     []*gfx.Param
	byName     map[string]*gfx.Param
	techniques map[string]*program
}

func (d *Device) loadEffect(name, src string) (*Effect, error) {
	info := parseSource(src)
	e := &Effect{
		dev:        d,
		name:       name,
		byName:     make(map[string]*gfx.Param),
		techniques: make(map[string]*program),
	}
	for _, technique := range info.techniques {
		p, err := d.buildTechnique(e, info, techniqueSource(src, technique))
		if err != nil {
			e.Destroy()
			return nil, fmt.Errorf("%s: technique %s: %w", name, technique, err)
		}
		e.techniques[technique] = p
	}
	return e, nil
}

func (d *Device) buildTechnique(e *Effect, info sourceInfo, src string) (*program, error) {
	code, mapped, err := translator.Fragment(src)
	if err != nil {
		return nil, err
	}
	id, err := linkProgram(d.vertexShader, code)
	if err != nil {
		return nil, err
	}

	original := make(map[string]string, len(mapped))
	for name, m := range mapped {
		original[m] = name
	}

	p := &program{
		id:          id,
		projLoc:     gl.GetUniformLocation(id, gl.Str("fxProjection\x00")),
		sizeLoc:     gl.GetUniformLocation(id, gl.Str("fxSize\x00")),
		viewSizeLoc: -1,
		locs:        make(map[string]int32),
	}

	var count int32
	gl.GetProgramiv(id, gl.ACTIVE_UNIFORMS, &count)
	buf := make([]uint8, 256)
	for i := uint32(0); i < uint32(count); i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(id, i, int32(len(buf)), &length, &size, &xtype, &buf[0])
		glName := string(buf[:length])
		name := strings.TrimSuffix(glName, "[0]")
		if o, ok := original[name]; ok {
			name = o
		}
		loc := gl.GetUniformLocation(id, gl.Str(glName+"\x00"))

		switch {
		case name == "fxProjection" || name == "fxSize":
			continue
		case internalUniforms[name]:
			p.viewSizeLoc = loc
			continue
		}

		typ := paramType(xtype)
		if typ == gfx.ParamUnknown {
			log.Printf("Warning: %s: uniform %s has an unsupported type 0x%x", e.name, name, xtype)
			continue
		}
		p.locs[name] = loc
		if _, ok := e.byName[name]; ok {
			continue
		}
		spec := gfx.ParamSpec{Name: name, Type: typ}
		if u, ok := info.uniforms[name]; ok {
			spec.Annotations = u.annotations
			applyDefaults(&spec, u.defaults)
		}
		param := gfx.NewParam(spec)
		e.params = append(e.params, param)
		e.byName[name] = param
	}
	return p, nil
}

func paramType(xtype uint32) gfx.ParamType {
	switch xtype {
	case gl.BOOL:
		return gfx.ParamBool
	case gl.FLOAT:
		return gfx.ParamFloat
	case gl.FLOAT_VEC2:
		return gfx.ParamFloat2
	case gl.FLOAT_VEC3:
		return gfx.ParamFloat3
	case gl.FLOAT_VEC4:
		return gfx.ParamFloat4
	case gl.INT:
		return gfx.ParamInt
	case gl.INT_VEC2:
		return gfx.ParamInt2
	case gl.INT_VEC3:
		return gfx.ParamInt3
	case gl.INT_VEC4:
		return gfx.ParamInt4
	case gl.FLOAT_MAT4:
		return gfx.ParamMatrix
	case gl.SAMPLER_2D:
		return gfx.ParamTexture
	default:
		return gfx.ParamUnknown
	}
}

func (e *Effect) Name() string                 { return e.name }
func (e *Effect) Params() []*gfx.Param         { return e.params }
func (e *Effect) Param(name string) *gfx.Param { return e.byName[name] }

func (e *Effect) Destroy() {
	for _, p := range e.techniques {
		gl.DeleteProgram(p.id)
	}
	e.techniques = nil
}

// Loop binds the technique's program, uploads every parameter and calls draw.
// Each technique is a single pass.
func (e *Effect) Loop(technique string, draw func()) error {
	p, ok := e.techniques[technique]
	if !ok {
		return fmt.Errorf("%s: %w: %q", e.name, gfx.ErrNoTechnique, technique)
	}
	prev := e.dev.pass
	defer func() { e.dev.pass = prev }()

	gl.UseProgram(p.id)
	units := e.upload(p)
	e.dev.pass = p
	draw()

	for i := 0; i < units; i++ {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.UseProgram(0)
	return nil
}

// upload sets every uniform of p and returns the number of texture units used.
func (e *Effect) upload(p *program) int {
	unit := 0
	for _, param := range e.params {
		loc, ok := p.locs[param.Name()]
		if !ok || loc == -1 {
			continue
		}
		switch t := param.Type(); {
		case t == gfx.ParamBool:
			var v int32
			if param.Bool() {
				v = 1
			}
			gl.Uniform1i(loc, v)
		case t == gfx.ParamMatrix:
			m := param.Matrix()
			gl.UniformMatrix4fv(loc, 1, false, &m[0])
		case t.IsFloat():
			f := param.Floats()
			switch len(f) {
			case 1:
				gl.Uniform1f(loc, f[0])
			case 2:
				gl.Uniform2f(loc, f[0], f[1])
			case 3:
				gl.Uniform3f(loc, f[0], f[1], f[2])
			case 4:
				gl.Uniform4f(loc, f[0], f[1], f[2], f[3])
			}
		case t.IsInt():
			v := param.Ints()
			switch len(v) {
			case 1:
				gl.Uniform1i(loc, v[0])
			case 2:
				gl.Uniform2i(loc, v[0], v[1])
			case 3:
				gl.Uniform3i(loc, v[0], v[1], v[2])
			case 4:
				gl.Uniform4i(loc, v[0], v[1], v[2], v[3])
			}
		case t == gfx.ParamTexture:
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			var id uint32
			if tex, ok := param.Texture().(*Texture); ok && tex != nil {
				id = tex.id
			}
			gl.BindTexture(gl.TEXTURE_2D, id)
			gl.Uniform1i(loc, int32(unit))
			unit++
		}
		param.ClearDirty()
	}
	return unit
}

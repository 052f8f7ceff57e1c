package gfx

// ParamType is the compile-time type of an effect parameter.
type ParamType uint8

const (
	ParamUnknown ParamType = iota
	ParamBool
	ParamFloat
	ParamFloat2
	ParamFloat3
	ParamFloat4
	ParamInt
	ParamInt2
	ParamInt3
	ParamInt4
	ParamMatrix
	ParamString
	ParamTexture
	ParamSampler
)

var paramTypeNames = [...]string{
	ParamUnknown: "unknown",
	ParamBool:    "bool",
	ParamFloat:   "float",
	ParamFloat2:  "float2",
	ParamFloat3:  "float3",
	ParamFloat4:  "float4",
	ParamInt:     "int",
	ParamInt2:    "int2",
	ParamInt3:    "int3",
	ParamInt4:    "int4",
	ParamMatrix:  "float4x4",
	ParamString:  "string",
	ParamTexture: "texture",
	ParamSampler: "sampler",
}

func (t ParamType) String() string {
	if int(t) < len(paramTypeNames) {
		return paramTypeNames[t]
	}
	return "unknown"
}

// Components is the number of scalar components of a float or int type.
func (t ParamType) Components() int {
	switch t {
	case ParamBool, ParamFloat, ParamInt:
		return 1
	case ParamFloat2, ParamInt2:
		return 2
	case ParamFloat3, ParamInt3:
		return 3
	case ParamFloat4, ParamInt4:
		return 4
	case ParamMatrix:
		return 16
	default:
		return 0
	}
}

// IsFloat reports whether t stores float components.
func (t ParamType) IsFloat() bool {
	switch t {
	case ParamFloat, ParamFloat2, ParamFloat3, ParamFloat4, ParamMatrix:
		return true
	}
	return false
}

// IsInt reports whether t stores int components.
func (t ParamType) IsInt() bool {
	switch t {
	case ParamInt, ParamInt2, ParamInt3, ParamInt4:
		return true
	}
	return false
}

// Matrix4 is a column-major 4x4 matrix.
type Matrix4 [16]float32

// Identity returns the identity matrix.
func Identity() Matrix4 {
	return Matrix4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// SamplerState describes how a texture parameter is sampled.
type SamplerState struct {
	Filter ScaleFilter
	Clamp  bool
}

type paramValue struct {
	b   bool
	f   [16]float32
	i   [4]int32
	s   string
	tex Texture
	smp SamplerState
}

// ParamSpec describes a parameter when a backend builds a program.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Bool        bool
	Floats      []float32
	Ints        []int32
	String      string
	Annotations []ParamSpec
}

// Param is a typed value cell of a compiled effect. Its type never changes;
// writes of another type are ignored and never partially applied.
type Param struct {
	name        string
	typ         ParamType
	val         paramValue
	def         paramValue
	annotations []*Param
	dirty       bool
}

// NewParam builds a parameter whose current and default value come from spec.
func NewParam(spec ParamSpec) *Param {
	p := &Param{name: spec.Name, typ: spec.Type}
	p.def.b = spec.Bool
	copy(p.def.f[:], spec.Floats)
	copy(p.def.i[:], spec.Ints)
	p.def.s = spec.String
	if spec.Type == ParamMatrix && len(spec.Floats) == 0 {
		p.def.f = Identity()
	}
	p.val = p.def
	p.dirty = true
	for _, a := range spec.Annotations {
		p.annotations = append(p.annotations, NewParam(a))
	}
	return p
}

func (p *Param) Name() string    { return p.name }
func (p *Param) Type() ParamType { return p.typ }

// Dirty reports whether the value changed since the last ClearDirty. Backends
// use it to skip redundant uniform uploads.
func (p *Param) Dirty() bool { return p.dirty }
func (p *Param) ClearDirty() { p.dirty = false }

// Annotations returns the read-only annotation list.
func (p *Param) Annotations() []*Param { return p.annotations }

// Annotation looks up an annotation by name.
func (p *Param) Annotation(name string) (*Param, bool) {
	for _, a := range p.annotations {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

// HasAnnotation reports whether an annotation of the given name and type exists.
func (p *Param) HasAnnotation(name string, typ ParamType) bool {
	a, ok := p.Annotation(name)
	return ok && a.typ == typ
}

func (p *Param) SetBool(v bool) {
	if p.typ != ParamBool {
		return
	}
	p.val.b = v
	p.dirty = true
}

func (p *Param) Bool() bool        { return p.val.b }
func (p *Param) DefaultBool() bool { return p.def.b }

func (p *Param) setFloats(t ParamType, v ...float32) {
	if p.typ != t {
		return
	}
	copy(p.val.f[:], v)
	p.dirty = true
}

func (p *Param) SetFloat(x float32)           { p.setFloats(ParamFloat, x) }
func (p *Param) SetFloat2(x, y float32)       { p.setFloats(ParamFloat2, x, y) }
func (p *Param) SetFloat3(x, y, z float32)    { p.setFloats(ParamFloat3, x, y, z) }
func (p *Param) SetFloat4(x, y, z, w float32) { p.setFloats(ParamFloat4, x, y, z, w) }
func (p *Param) SetMatrix(m Matrix4)          { p.setFloats(ParamMatrix, m[:]...) }
func (p *Param) Float() float32               { return p.val.f[0] }
func (p *Param) DefaultFloat() float32        { return p.def.f[0] }
func (p *Param) Matrix() Matrix4              { return Matrix4(p.val.f) }
func (p *Param) DefaultMatrix() Matrix4       { return Matrix4(p.def.f) }

func (p *Param) setInts(t ParamType, v ...int32) {
	if p.typ != t {
		return
	}
	copy(p.val.i[:], v)
	p.dirty = true
}

func (p *Param) SetInt(x int32)           { p.setInts(ParamInt, x) }
func (p *Param) SetInt2(x, y int32)       { p.setInts(ParamInt2, x, y) }
func (p *Param) SetInt3(x, y, z int32)    { p.setInts(ParamInt3, x, y, z) }
func (p *Param) SetInt4(x, y, z, w int32) { p.setInts(ParamInt4, x, y, z, w) }
func (p *Param) Int() int32               { return p.val.i[0] }
func (p *Param) DefaultInt() int32        { return p.def.i[0] }

// Floats returns the float components of a float typed parameter.
func (p *Param) Floats() []float32 {
	n := p.typ.Components()
	if !p.typ.IsFloat() {
		return nil
	}
	out := make([]float32, n)
	copy(out, p.val.f[:n])
	return out
}

// DefaultFloats returns the default float components.
func (p *Param) DefaultFloats() []float32 {
	n := p.typ.Components()
	if !p.typ.IsFloat() {
		return nil
	}
	out := make([]float32, n)
	copy(out, p.def.f[:n])
	return out
}

// Ints returns the int components of an int typed parameter.
func (p *Param) Ints() []int32 {
	if !p.typ.IsInt() {
		return nil
	}
	n := p.typ.Components()
	out := make([]int32, n)
	copy(out, p.val.i[:n])
	return out
}

// DefaultInts returns the default int components.
func (p *Param) DefaultInts() []int32 {
	if !p.typ.IsInt() {
		return nil
	}
	n := p.typ.Components()
	out := make([]int32, n)
	copy(out, p.def.i[:n])
	return out
}

// SetFloats writes all components of a float parameter at once. The write is
// ignored unless len(v) matches the component count.
func (p *Param) SetFloats(v []float32) {
	if !p.typ.IsFloat() || len(v) != p.typ.Components() {
		return
	}
	copy(p.val.f[:], v)
	p.dirty = true
}

// SetInts is the int counterpart of SetFloats.
func (p *Param) SetInts(v []int32) {
	if !p.typ.IsInt() || len(v) != p.typ.Components() {
		return
	}
	copy(p.val.i[:], v)
	p.dirty = true
}

func (p *Param) SetString(v string) {
	if p.typ != ParamString {
		return
	}
	p.val.s = v
	p.dirty = true
}

func (p *Param) StringValue() string   { return p.val.s }
func (p *Param) DefaultString() string { return p.def.s }

func (p *Param) SetTexture(t Texture) {
	if p.typ != ParamTexture {
		return
	}
	p.val.tex = t
	p.dirty = true
}

func (p *Param) Texture() Texture { return p.val.tex }

func (p *Param) SetSampler(s SamplerState) {
	if p.typ != ParamSampler {
		return
	}
	p.val.smp = s
	p.dirty = true
}

func (p *Param) Sampler() SamplerState { return p.val.smp }

// Reset restores the default value.
func (p *Param) Reset() {
	p.val = p.def
	p.dirty = true
}

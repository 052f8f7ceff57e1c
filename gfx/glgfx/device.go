// Package glgfx implements gfx.Device on OpenGL 4.1 core.
//
// Every method must be called on the goroutine that owns the current GL
// context, which is the locked main thread in the demo host.
package glgfx

import (
	"fmt"
	"image"
	"log"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshaderfx/gfx"
	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// unit square, two triangles
var quadVertices = []float32{
	0, 0, 1, 0, 1, 1,
	0, 0, 1, 1, 0, 1,
}

type Device struct {
	quadVAO uint32
	quadVBO uint32

	width, height int32
	targets       []*surface
	states        []gfx.DrawState

	vertexShader  uint32
	pass          *program
	def           *Effect
	presentProg   uint32
	presentTexLoc int32
	presentSzLoc  int32
}

// New initializes GL function pointers and creates the shared sprite geometry.
// A GL context must be current. width and height are the default framebuffer
// size.
func New(width, height int) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Printf("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))

	d := &Device{width: int32(width), height: int32(height)}

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	var err error
	d.vertexShader, err = compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("failed to compile sprite vertex shader: %w", err)
	}

	d.def, err = d.loadEffect("default", defaultEffectSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create default effect: %w", err)
	}

	d.presentProg, err = newProgram(presentVertexShaderSource, presentFragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create present program: %w", err)
	}
	d.presentTexLoc = gl.GetUniformLocation(d.presentProg, gl.Str("u_texture\x00"))
	d.presentSzLoc = gl.GetUniformLocation(d.presentProg, gl.Str("u_size\x00"))
	return d, nil
}

func (d *Device) Destroy() {
	d.def.Destroy()
	gl.DeleteProgram(d.presentProg)
	gl.DeleteShader(d.vertexShader)
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
}

// Resize sets the default framebuffer size.
func (d *Device) Resize(width, height int) {
	d.width, d.height = int32(width), int32(height)
}

func (d *Device) NewSurface(format gfx.ColorFormat, zs gfx.ZStencilFormat) (gfx.Surface, error) {
	return &surface{dev: d, format: format, zs: zs}, nil
}

func (d *Device) LoadEffectFile(path string) (gfx.Effect, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read effect file: %w", err)
	}
	return d.loadEffect(path, string(src))
}

func (d *Device) LoadEffectSource(name, code string) (gfx.Effect, error) {
	return d.loadEffect(name, code)
}

func (d *Device) LoadTexture(path string) (gfx.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}
	return NewTexture(img), nil
}

// NewTexture uploads img as an 8-bit RGBA texture.
func NewTexture(img image.Image) *Texture {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	}

	t := &Texture{width: uint32(b.Dx()), height: uint32(b.Dy()), format: gfx.FormatRGBA}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.width), int32(t.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

func (d *Device) DefaultEffect() gfx.Effect { return d.def }

func (d *Device) PushState(s gfx.DrawState) {
	d.states = append(d.states, s)
	applyState(s)
}

func (d *Device) PopState() {
	if len(d.states) == 0 {
		log.Println("Warning: GL state stack underflow")
		return
	}
	d.states = d.states[:len(d.states)-1]
	if len(d.states) > 0 {
		applyState(d.states[len(d.states)-1])
	} else {
		applyState(gfx.DrawState{})
	}
}

func applyState(s gfx.DrawState) {
	enable := func(c uint32, on bool) {
		if on {
			gl.Enable(c)
		} else {
			gl.Disable(c)
		}
	}
	enable(gl.BLEND, s.Blend)
	if s.Blend {
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	}
	enable(gl.DEPTH_TEST, s.DepthTest)
	enable(gl.STENCIL_TEST, s.StencilTest)
	if s.StencilWrite {
		gl.StencilMask(0xff)
	} else {
		gl.StencilMask(0)
	}
	// sprites are drawn with either winding depending on the projection
	gl.Disable(gl.CULL_FACE)
}

// viewport is the size of the current draw destination.
func (d *Device) viewport() (int32, int32) {
	if n := len(d.targets); n > 0 {
		t := d.targets[n-1]
		return int32(t.width), int32(t.height)
	}
	return d.width, d.height
}

func (d *Device) projection() gfx.Matrix4 {
	if n := len(d.states); n > 0 && d.states[n-1].Projection != nil {
		return orthoMatrix(*d.states[n-1].Projection)
	}
	w, h := d.viewport()
	return orthoMatrix(gfx.Ortho{Right: float32(w), Bottom: float32(h), Near: -1, Far: 1})
}

func orthoMatrix(o gfx.Ortho) gfx.Matrix4 {
	rl, tb, fn := o.Right-o.Left, o.Top-o.Bottom, o.Far-o.Near
	return gfx.Matrix4{
		2 / rl, 0, 0, 0,
		0, 2 / tb, 0, 0,
		0, 0, -2 / fn, 0,
		-(o.Right + o.Left) / rl, -(o.Top + o.Bottom) / tb, -(o.Far + o.Near) / fn, 1,
	}
}

func (d *Device) DrawSprite(width, height uint32) {
	p := d.pass
	if p == nil {
		log.Println("Warning: DrawSprite called outside of an effect pass")
		return
	}
	proj := d.projection()
	gl.UniformMatrix4fv(p.projLoc, 1, false, &proj[0])
	gl.Uniform2f(p.sizeLoc, float32(width), float32(height))
	if p.viewSizeLoc != -1 {
		gl.Uniform2f(p.viewSizeLoc, float32(width), float32(height))
	}
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

func (d *Device) DrawTexture(tex gfx.Texture, width, height uint32, filter gfx.ScaleFilter) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		log.Printf("Warning: GL device cannot draw texture of type %T", tex)
		return
	}
	t.setFilter(filter)
	technique := "Draw"
	if filter == gfx.FilterBicubic || filter == gfx.FilterLanczos {
		technique = "DrawBicubic"
	}
	d.def.Param("image").SetTexture(t)
	if err := d.def.Loop(technique, func() { d.DrawSprite(width, height) }); err != nil {
		log.Printf("Warning: default effect draw failed: %v", err)
	}
}

// ReadPixels reads tex back as top-down 8-bit RGBA.
func (d *Device) ReadPixels(tex gfx.Texture) ([]byte, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("cannot read texture of type %T", tex)
	}
	pix := make([]byte, int(t.width)*int(t.height)*4)
	if len(pix) == 0 {
		return pix, nil
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return pix, nil
}

// Present draws tex over the whole default framebuffer.
func (d *Device) Present(tex gfx.Texture) {
	t, ok := tex.(*Texture)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, d.width, d.height)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	if !ok || t == nil {
		return
	}
	gl.UseProgram(d.presentProg)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.Uniform1i(d.presentTexLoc, 0)
	gl.Uniform2f(d.presentSzLoc, float32(d.width), float32(d.height))
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertexShader)
	return linkProgram(vertexShader, fragmentShaderSource)
}

// linkProgram compiles the fragment source and links it with an already
// compiled vertex shader, which stays owned by the caller.
func linkProgram(vertexShader uint32, fragmentShaderSource string) (uint32, error) {
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}

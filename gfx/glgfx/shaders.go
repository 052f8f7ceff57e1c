package glgfx

import (
	"fmt"
	"strings"
)

// Sprite vertex shader. The quad is the unit square scaled to fxSize pixels
// and projected with fxProjection.
const vertexShaderSource = `#version 410 core
layout (location = 0) in vec2 in_vert;
uniform mat4 fxProjection;
uniform vec2 fxSize;
void main() {
    gl_Position = fxProjection * vec4(in_vert * fxSize, 0.0, 1.0);
}
`

// Prepended to every effect. frag_uv is derived from the fragment position so
// effects need no varyings that the translator would rename.
const fragmentPreamble = `#version 300 es
precision highp float;
precision highp int;

uniform vec2 fxViewSize;
out vec4 fragColor;
#define frag_uv (gl_FragCoord.xy / fxViewSize)
`

// Names the backend sets itself and never exposes as effect parameters.
var internalUniforms = map[string]bool{
	"fxViewSize": true,
}

const defaultEffectSource = `//@technique Draw
//@technique DrawBicubic
uniform sampler2D image;

vec4 cubic(float v) {
    vec4 n = vec4(1.0, 2.0, 3.0, 4.0) - v;
    vec4 s = n * n * n;
    float x = s.x;
    float y = s.y - 4.0 * s.x;
    float z = s.z - 4.0 * s.y + 6.0 * s.x;
    float w = 6.0 - x - y - z;
    return vec4(x, y, z, w) * (1.0 / 6.0);
}

vec4 bicubic(sampler2D tex, vec2 uv) {
    vec2 size = vec2(textureSize(tex, 0));
    vec2 texel = 1.0 / size;
    uv = uv * size - 0.5;
    vec2 fxy = fract(uv);
    uv -= fxy;
    vec4 xc = cubic(fxy.x);
    vec4 yc = cubic(fxy.y);
    vec4 c = uv.xxyy + vec2(-0.5, 1.5).xyxy;
    vec4 s = vec4(xc.xz + xc.yw, yc.xz + yc.yw);
    vec4 off = (c + vec4(xc.yw, yc.yw) / s) * texel.xxyy;
    vec4 s0 = texture(tex, off.xz);
    vec4 s1 = texture(tex, off.yz);
    vec4 s2 = texture(tex, off.xw);
    vec4 s3 = texture(tex, off.yw);
    float sx = s.x / (s.x + s.y);
    float sy = s.z / (s.z + s.w);
    return mix(mix(s3, s2, sx), mix(s1, s0, sx), sy);
}

void main() {
#ifdef TECHNIQUE_DrawBicubic
    fragColor = bicubic(image, frag_uv);
#else
    fragColor = texture(image, frag_uv);
#endif
}
`

// Flipped blit used to present a texture to the window, whose origin is the
// bottom left.
const presentFragmentShaderSource = `#version 410 core
uniform sampler2D u_texture;
uniform vec2 u_size;
out vec4 fragColor;
void main() {
    vec2 uv = gl_FragCoord.xy / u_size;
    fragColor = texture(u_texture, vec2(uv.x, 1.0 - uv.y));
}
`

const presentVertexShaderSource = `#version 410 core
layout (location = 0) in vec2 in_vert;
void main() {
    gl_Position = vec4(in_vert * 2.0 - 1.0, 0.0, 1.0);
}
`

// techniqueSource builds the WebGL2 source compiled for one technique.
func techniqueSource(user, technique string) string {
	var b strings.Builder
	b.WriteString(fragmentPreamble)
	fmt.Fprintf(&b, "#define TECHNIQUE_%s 1\n", technique)
	b.WriteString(user)
	return b.String()
}

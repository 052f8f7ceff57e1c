package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// GetTranslator returns the process-wide translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		ctx := context.Background()
		translator, initErr = gst.NewShaderTranslator(ctx)
	})
	return translator, initErr
}

// Fragment translates a WebGL2 fragment shader to desktop GLSL 4.10. The
// returned map gives the translated name of every variable the source declares.
func Fragment(source string) (string, map[string]string, error) {
	t, err := GetTranslator()
	if err != nil {
		return "", nil, fmt.Errorf("failed to create shader translator: %w", err)
	}
	res, err := t.TranslateShader(source, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return "", nil, fmt.Errorf("fragment shader translation failed: %w", err)
	}
	mapped := make(map[string]string, len(res.Variables))
	for name, v := range res.Variables {
		mapped[name] = v.MappedName
	}
	return res.Code, mapped, nil
}

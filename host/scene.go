package host

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Scene is the TOML description of the sources a host starts with.
//
//	output = "mirror"
//
//	[[source]]
//	id = "goshaderfx-source-still"
//	name = "background"
//	  [source.settings]
//	  "Source.Still.Width" = 640
//	  [[source.filter]]
//	  id = "goshaderfx-filter-shader"
//	  name = "wave"
//	    [source.filter.settings]
//	    "Shader.File" = "wave.effect"
type Scene struct {
	Output  string        `toml:"output"`
	Sources []SceneSource `toml:"source"`
}

type SceneSource struct {
	ID       string         `toml:"id"`
	Name     string         `toml:"name"`
	Settings map[string]any `toml:"settings,omitempty"`
	Filters  []SceneSource  `toml:"filter,omitempty"`
}

func LoadScene(path string) (*Scene, error) {
	var sc Scene
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		return nil, fmt.Errorf("couldn't read scene file: %w", err)
	}
	return &sc, nil
}

func (sc *Scene) Save(path string) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(sc); err != nil {
		return fmt.Errorf("couldn't encode scene: %w", err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("couldn't write scene file: %w", err)
	}
	return nil
}

// Build creates every source of the scene with its filters and returns the
// output source.
func (h *Host) Build(sc *Scene) (*Source, error) {
	for _, ss := range sc.Sources {
		src, err := h.Create(ss.ID, ss.Name, SettingsFromMap(ss.Settings))
		if err != nil {
			return nil, err
		}
		for _, fs := range ss.Filters {
			f, err := h.Create(fs.ID, fs.Name, SettingsFromMap(fs.Settings))
			if err != nil {
				return nil, err
			}
			if err := src.AddFilter(f); err != nil {
				return nil, err
			}
		}
	}
	if sc.Output == "" {
		return nil, nil
	}
	out := h.Source(sc.Output)
	if out == nil {
		return nil, fmt.Errorf("%w: output %q", ErrUnknownSource, sc.Output)
	}
	return out, nil
}

// Snapshot saves every source and returns the scene that recreates them.
func (h *Host) Snapshot(output string) *Scene {
	sc := &Scene{Output: output}
	for _, s := range h.Sources() {
		ss := SceneSource{ID: s.ID(), Name: s.Name(), Settings: s.Save().Values()}
		for _, f := range s.Filters() {
			ss.Filters = append(ss.Filters, SceneSource{ID: f.ID(), Name: f.Name(), Settings: f.Save().Values()})
		}
		sc.Sources = append(sc.Sources, ss)
	}
	return sc
}

package host

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

// Settings is a typed key/value store with declared defaults. Reads fall back
// to the default when no value was set. Keys are flat strings such as
// "Filter.Shader.Scale.Locked".
type Settings struct {
	mu       sync.RWMutex
	values   map[string]any
	defaults map[string]any
}

func NewSettings() *Settings {
	return &Settings{
		values:   make(map[string]any),
		defaults: make(map[string]any),
	}
}

// SettingsFromMap builds settings from decoded TOML values. TOML integers and
// floats become int and double settings.
func SettingsFromMap(m map[string]any) *Settings {
	s := NewSettings()
	for k, v := range m {
		switch v := v.(type) {
		case bool, int64, float64, string:
			s.values[k] = v
		case int:
			s.values[k] = int64(v)
		}
	}
	return s
}

// LoadSettingsFile reads settings from a TOML file of top-level keys.
func LoadSettingsFile(path string) (*Settings, error) {
	m := make(map[string]any)
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("couldn't read settings file: %w", err)
	}
	return SettingsFromMap(m), nil
}

// SaveFile writes the explicitly set values, not the defaults, as TOML.
func (s *Settings) SaveFile(path string) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(s.Values()); err != nil {
		return fmt.Errorf("couldn't encode settings: %w", err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("couldn't write settings file: %w", err)
	}
	return nil
}

// Values returns a copy of the explicitly set values.
func (s *Settings) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns the sorted union of set and defaulted keys.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var keys []string
	for _, m := range []map[string]any{s.values, s.defaults} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key has an explicitly set value.
func (s *Settings) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Erase removes the set value of key so reads return the default again.
func (s *Settings) Erase(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Apply copies every set value of other into s.
func (s *Settings) Apply(other *Settings) {
	vals := other.Values()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range vals {
		s.values[k] = v
	}
}

func (s *Settings) get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return s.defaults[key]
}

func (s *Settings) getDefault(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults[key]
}

func (s *Settings) set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

func (s *Settings) setDefault(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[key] = v
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toDouble(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func toInt(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func toString(v any) string {
	str, _ := v.(string)
	return str
}

func (s *Settings) Bool(key string) bool              { return toBool(s.get(key)) }
func (s *Settings) DefaultBool(key string) bool       { return toBool(s.getDefault(key)) }
func (s *Settings) SetBool(key string, v bool)        { s.set(key, v) }
func (s *Settings) SetDefaultBool(key string, v bool) { s.setDefault(key, v) }

func (s *Settings) Double(key string) float64              { return toDouble(s.get(key)) }
func (s *Settings) DefaultDouble(key string) float64       { return toDouble(s.getDefault(key)) }
func (s *Settings) SetDouble(key string, v float64)        { s.set(key, v) }
func (s *Settings) SetDefaultDouble(key string, v float64) { s.setDefault(key, v) }

func (s *Settings) Int(key string) int64              { return toInt(s.get(key)) }
func (s *Settings) DefaultInt(key string) int64       { return toInt(s.getDefault(key)) }
func (s *Settings) SetInt(key string, v int64)        { s.set(key, v) }
func (s *Settings) SetDefaultInt(key string, v int64) { s.setDefault(key, v) }

func (s *Settings) String(key string) string              { return toString(s.get(key)) }
func (s *Settings) DefaultString(key string) string       { return toString(s.getDefault(key)) }
func (s *Settings) SetString(key string, v string)        { s.set(key, v) }
func (s *Settings) SetDefaultString(key string, v string) { s.setDefault(key, v) }

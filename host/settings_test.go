package host

import (
	"path/filepath"
	"testing"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettings()
	s.SetDefaultDouble("Scale", 1.0)
	s.SetDefaultBool("Locked", true)
	if s.Double("Scale") != 1.0 || !s.Bool("Locked") {
		t.Error("defaults not returned")
	}
	s.SetDouble("Scale", 2.5)
	if s.Double("Scale") != 2.5 || s.DefaultDouble("Scale") != 1.0 {
		t.Error("set value did not override the default")
	}
	if !s.Has("Scale") || s.Has("Locked") {
		t.Error("Has reports defaults as set")
	}
	s.Erase("Scale")
	if s.Double("Scale") != 1.0 {
		t.Error("erase did not restore the default")
	}
	s.SetInt("Count", 3)
	if s.Double("Count") != 3 {
		t.Error("int not readable as double")
	}
	if len(s.Keys()) != 3 {
		t.Errorf("keys %v", s.Keys())
	}
}

func TestSettingsFileRoundTrip(t *testing.T) {
	s := NewSettings()
	s.SetDefaultString("Shader.Technique", "Draw")
	s.SetString("Shader.File", "/tmp/wave.effect")
	s.SetBool("Filter.Shader.Scale.Locked", false)
	s.SetDouble("Filter.Shader.Scale.Width", 1.5)
	s.SetInt("Source.Mirror.Scaling.Alignment", 2)
	s.SetDouble("Tint[2]", 0.25)

	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := s.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSettingsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Has("Shader.Technique") {
		t.Error("default was persisted")
	}
	if got.String("Shader.File") != "/tmp/wave.effect" ||
		got.Bool("Filter.Shader.Scale.Locked") ||
		got.Double("Filter.Shader.Scale.Width") != 1.5 ||
		got.Int("Source.Mirror.Scaling.Alignment") != 2 ||
		got.Double("Tint[2]") != 0.25 {
		t.Errorf("round trip lost values: %v", got.Values())
	}
}

func TestLoadSettingsFileMissing(t *testing.T) {
	if _, err := LoadSettingsFile(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestEventOrderAndRemove(t *testing.T) {
	var ev Event[int]
	var got []int
	var self ListenerID
	ev.Add(func(v int) { got = append(got, v) })
	self = ev.Add(func(v int) {
		got = append(got, v*10)
		ev.Remove(self)
	})
	ev.Emit(1)
	ev.Emit(2)
	want := []int{1, 10, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if ev.Len() != 1 {
		t.Errorf("%d listeners left", ev.Len())
	}
}

func TestEventEmitDoesNotAllocate(t *testing.T) {
	var ev Event[int]
	sum := 0
	ev.Add(func(v int) { sum += v })
	ev.Add(func(v int) { sum -= v / 2 })
	allocs := testing.AllocsPerRun(100, func() { ev.Emit(2) })
	if allocs != 0 {
		t.Errorf("Emit allocated %v times per call", allocs)
	}
	if sum != 101 {
		t.Errorf("sum = %d", sum)
	}
}

func TestPropertiesModified(t *testing.T) {
	props := NewProperties()
	lock := props.AddBool("Locked", "Locked")
	scale := props.AddFloat("Scale", "Scale", 0.01, 5, 0.01)
	width := props.AddFloat("Width", "Width", 0.01, 5, 0.01)
	lock.SetModifiedCallback(func(ps *Properties, p *Property, s *Settings) bool {
		locked := s.Bool("Locked")
		ps.Get("Scale").SetVisible(locked)
		ps.Get("Width").SetVisible(!locked)
		return true
	})

	s := NewSettings()
	s.SetBool("Locked", true)
	if !props.Modified("Locked", s) {
		t.Fatal("callback not run")
	}
	if !scale.Visible() || width.Visible() {
		t.Error("locked visibility wrong")
	}
	s.SetBool("Locked", false)
	props.Modified("Locked", s)
	if scale.Visible() || !width.Visible() {
		t.Error("unlocked visibility wrong")
	}
	if props.Modified("Scale", s) {
		t.Error("property without callback asked for refresh")
	}
	if len(props.List()) != 3 || props.List()[1] != scale {
		t.Error("properties out of order")
	}
}

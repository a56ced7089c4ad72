package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

// TestLoadDefaults ensures an empty environment yields the calibrated defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Epoch(), time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("Epoch = %v, want %v", got, want)
	}
	if got := cfg.Picker.Debounce; got != 50*time.Millisecond {
		t.Fatalf("Picker.Debounce = %v, want 50ms", got)
	}
	if got := cfg.Animation.Speed; got != 15 {
		t.Fatalf("Animation.Speed = %v, want 15", got)
	}
	if got := cfg.Language(); got != language.English {
		t.Fatalf("Language = %v, want en", got)
	}
	if !strings.HasSuffix(cfg.Data.CasesURL, "time_series_covid19_confirmed_global.csv") {
		t.Fatalf("Data.CasesURL = %q", cfg.Data.CasesURL)
	}

	col := cfg.ColumnOptions()
	if col.FaceCount != 4 || math.Abs(col.Rotation-math.Pi/4) > 1e-12 {
		t.Fatalf("ColumnOptions = %+v", col)
	}
	if math.Abs(col.Radius-1.024) > 1e-9 {
		t.Fatalf("Radius = %v, want 1.024", col.Radius)
	}
	if got := cfg.HeightScale(); math.Abs(got-2.4064) > 1e-9 {
		t.Fatalf("HeightScale = %v, want 2.4064", got)
	}
	if cfg.ScopeOptions().Unlit {
		t.Fatal("ScopeOptions().Unlit = true, want shading on by default")
	}
}

// TestLoadEnvironment ensures prefixed variables override defaults.
func TestLoadEnvironment(t *testing.T) {
	t.Setenv("COVIDSCOPE_CAMERA_WORLD_SIZE", "1024")
	t.Setenv("COVIDSCOPE_PICKER_DEBOUNCE", "120ms")
	t.Setenv("COVIDSCOPE_COLUMN_FACE_COUNT", "6")
	t.Setenv("COVIDSCOPE_COLUMN_ROTATION", "0")
	t.Setenv("COVIDSCOPE_LOCALE", "de")
	t.Setenv("COVIDSCOPE_RENDER_SHADING", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.CameraOptions().WorldSize; got != 1024 {
		t.Fatalf("WorldSize = %v, want 1024", got)
	}
	if got := cfg.Picker.Debounce; got != 120*time.Millisecond {
		t.Fatalf("Debounce = %v, want 120ms", got)
	}
	col := cfg.ColumnOptions()
	if col.FaceCount != 6 || col.Rotation != 0 {
		t.Fatalf("ColumnOptions = %+v, want 6 faces without rotation", col)
	}
	if !cfg.ScopeOptions().Unlit {
		t.Fatal("ScopeOptions().Unlit = false with shading disabled")
	}
	if math.Abs(col.Radius-2.048) > 1e-9 {
		t.Fatalf("Radius = %v, want 2.048", col.Radius)
	}
	if got := cfg.ScopeOptions().Locale; got != language.German {
		t.Fatalf("Locale = %v, want de", got)
	}
}

// TestLoadFile ensures a config file is applied below the environment.
func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scope.yaml")
	body := "animation:\n  speed: 30\nserver:\n  listen: localhost:9000\nlog:\n  level: debug\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COVIDSCOPE_ANIMATION_SPEED", "5")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Listen != "localhost:9000" || cfg.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Server, cfg.Log)
	}
	if cfg.Animation.Speed != 5 {
		t.Fatalf("Animation.Speed = %v, want env value 5", cfg.Animation.Speed)
	}
}

// TestLoadRejectsInvalid ensures validation failures name the field.
func TestLoadRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		key, value, field string
	}{
		{"COVIDSCOPE_CAMERA_WORLD_SIZE", "500", "WorldSize"},
		{"COVIDSCOPE_COLUMN_FACE_COUNT", "2", "FaceCount"},
		{"COVIDSCOPE_DATA_EPOCH", "22/01/2020", "Epoch"},
		{"COVIDSCOPE_CAMERA_FAR_FACTOR", "0.001", "FarFactor"},
		{"COVIDSCOPE_LOG_LEVEL", "loud", "Level"},
		{"COVIDSCOPE_ANIMATION_SPEED", "0", "Speed"},
	} {
		t.Run(tc.field, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load("")
			if err == nil {
				t.Fatalf("Load with %s=%s returned no error", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not name %s", err, tc.field)
			}
		})
	}
}

// TestLoadMissingFile ensures an unreadable config file is an error.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of a missing file returned no error")
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type limits struct {
	Default int `yaml:"default"`
	Max     int `yaml:"max"`
}

func (l *limits) Validate() error {
	if l.Default > l.Max {
		return errors.New("default above max")
	}
	return nil
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("VAULTSEARCH_MAX", "50")
	cfg := limits{}
	if err := Load(writeYAML(t, "default: 5\nmax: ${VAULTSEARCH_MAX}\n"), &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Default != 5 || cfg.Max != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	cfg := limits{}
	if err := Load(writeYAML(t, "default: 9\nmax: 1\n"), &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	tests := []struct {
		name    string
		path    string
		start   limits
		want    limits
		wantErr bool
	}{
		{name: "missing keeps defaults", path: missing, start: limits{5, 100}, want: limits{5, 100}},
		{name: "missing still validates", path: missing, start: limits{9, 1}, wantErr: true},
		{name: "present overrides", path: writeYAML(t, "default: 10\n"), start: limits{5, 100}, want: limits{10, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.start
			err := LoadOptional(tt.path, &cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.want {
				t.Errorf("cfg = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("QUIRE_TEST_NAME", "from-env")
	p := writeFile(t, "name: ${QUIRE_TEST_NAME}\nlimit: 3\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Limit != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadOverridesBeforeValidation(t *testing.T) {
	p := writeFile(t, "limit: 1\n")

	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error without name")
	}
	if err := Load(p, &s, func(s *sample) { s.Name = "flag" }); err != nil {
		t.Fatalf("Load with override: %v", err)
	}
	if s.Name != "flag" {
		t.Errorf("name = %q, want flag", s.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var s sample
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil || loaded {
		t.Fatalf("loaded = %v, err = %v", loaded, err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}

	p := writeFile(t, "name: file\n")
	loaded, err = LoadOptional(p, &s)
	if err != nil || !loaded || s.Name != "file" {
		t.Errorf("loaded = %v, err = %v, s = %+v", loaded, err, s)
	}

	empty := sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &empty); err == nil {
		t.Error("defaults should still be validated")
	}
}

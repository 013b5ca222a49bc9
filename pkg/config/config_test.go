package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "notes")
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\nport: 9000\n"), 0o644))

	var s sample
	require.NoError(t, Load(path, &s))
	assert.Equal(t, "notes", s.Name)
	assert.Equal(t, 9000, s.Port)
}

func TestLoadOptionalMissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	require.NoError(t, LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s))
	assert.Equal(t, "default", s.Name)
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))

	var s sample
	err := Load(path, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is required")
}

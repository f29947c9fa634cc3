package main

import (
	"path/filepath"
	"testing"

	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/stretchr/testify/assert"
)

func TestLogo(t *testing.T) {
	assert.Contains(t, logo, "Copyright 2026 The georeferencer authors")
	assert.NotContains(t, logo, "YYYY")
}

func TestValidateOptionsForCommandRun(t *testing.T) {
	dir := t.TempDir()

	msg, ok := validateOptionsForCommandRun(&stage.StageOptions{ProjectPath: dir})
	assert.True(t, ok, msg)

	_, ok = validateOptionsForCommandRun(&stage.StageOptions{ProjectPath: filepath.Join(dir, "missing")})
	assert.False(t, ok)

	msg, ok = validateOptionsForCommandRun(&stage.StageOptions{ProjectPath: dir, Crop: -1})
	assert.False(t, ok)
	assert.Equal(t, "crop cannot be negative", msg)

	msg, ok = validateOptionsForCommandRun(&stage.StageOptions{ProjectPath: dir, AlignFile: filepath.Join(dir, "align.laz")})
	assert.False(t, ok)
	assert.Equal(t, "Align file not found", msg)
}

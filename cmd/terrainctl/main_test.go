package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-terrain/internal/logging"
)

func TestRealMainBadFlags(t *testing.T) {
	assert.Equal(t, 2, realMain([]string{"-edit", "1,2=3"}))
	assert.Equal(t, 2, realMain([]string{"-unknown"}))
}

func TestRealMainFlushesLogOnError(t *testing.T) {
	dir := t.TempDir()
	prev := logging.LogDir
	logging.LogDir = dir
	t.Cleanup(func() { logging.LogDir = prev })

	code := realMain([]string{"-config", filepath.Join(dir, "missing.yaml")})
	assert.Equal(t, 1, code)

	files, err := filepath.Glob(filepath.Join(dir, "terrainctl_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ошибка загрузки конфигурации", "Ошибка попадает в файл до выхода")
}

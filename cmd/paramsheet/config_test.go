package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/paramsheet"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.Decimals)
	assert.Equal(t, paramsheet.DefaultWorkbookSheet, cfg.WorkbookSheet)
	level, err := cfg.level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
decimals: 4
max_rows: 100
max_columns: 26
workbook_sheet: Params
log_level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Decimals:      4,
		MaxRows:       100,
		MaxColumns:    26,
		WorkbookSheet: "Params",
		LogLevel:      "debug",
	}, cfg)
	level, err := cfg.level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "max_rows: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Decimals)
	assert.Equal(t, 10, cfg.MaxRows)
	assert.Equal(t, paramsheet.DefaultWorkbookSheet, cfg.WorkbookSheet)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "decimals: [", "parse config"},
		{"negative decimals", "decimals: -1", "decimals must not be negative"},
		{"negative bounds", "max_rows: -5", "sheet bounds"},
		{"bad level", "log_level: loud", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConfig_SheetOptions(t *testing.T) {
	cfg := Config{Decimals: 3, MaxRows: 5, MaxColumns: 5}
	s := paramsheet.NewSheet(cfg.SheetOptions(slog.New(slog.DiscardHandler))...)
	assert.Equal(t, 3, s.Decimals())
	_, err := s.CreateCell(paramsheet.MustParseAddress("F1"))
	assert.ErrorIs(t, err, paramsheet.ErrOutOfBounds)
}

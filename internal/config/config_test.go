package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "indent:\n  tab_width: 4\n  use_tabs: true\npreview:\n  addr: 127.0.0.1:9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Indent.TabWidth)
	require.True(t, cfg.Indent.UseTabs)
	require.Equal(t, "127.0.0.1:9000", cfg.Preview.Addr)
	require.Equal(t, "github", cfg.Preview.Style, "unset keys keep defaults")
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DefaultsWithoutAnyFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_PrefersLocalFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	writeFile(t, LocalFile, "indent:\n  tab_width: 8\n")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Indent.TabWidth)
}

func TestLoad_UserConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".config", "blueprint-mode"), 0o755))
	writeFile(t, filepath.Join(dir, ".config", "blueprint-mode", "config.yaml"), "log:\n  level: debug\n")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "indent:\n  tab_width: 4\n")
	t.Setenv("BLUEPRINT_MODE_INDENT_TAB_WIDTH", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Indent.TabWidth)
}

func TestLoad_RejectsNonPositiveTabWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "indent:\n  tab_width: 0\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidTabWidth)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)

	require.Error(t, WriteDefault(path), "existing config is not overwritten")
}

func TestIndentConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Indent.UseTabs = true
	ic := cfg.IndentConfig()
	require.Equal(t, 2, ic.TabWidth)
	require.True(t, ic.UseTabs)
}

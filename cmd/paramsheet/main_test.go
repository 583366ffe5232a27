package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func TestCLI_SetAndGet(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "10 mm")
	mustRun(t, "alias", file, "A1", "Width")
	mustRun(t, "set", file, "B1", "=Width * 2")
	mustRun(t, "set", file, "C1", "=2*3")

	out := mustRun(t, "get", file, "B1", "Width", "C1")
	assert.Equal(t, "B1\t=Width * 2\t20 mm\nA1\t10 mm\t10 mm\nC1\t=2*3\t6\n", out)
}

func TestCLI_GetErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "=Missing + 1")

	out := mustRun(t, "get", file, "A1")
	assert.True(t, strings.HasPrefix(out, "A1\t=Missing + 1\t#ERR "), out)

	_, err := run(t, "", "get", file, "Nobody")
	assert.ErrorContains(t, err, `"Nobody": not found`)
}

func TestCLI_MissingFile(t *testing.T) {
	_, err := run(t, "", "show", filepath.Join(t.TempDir(), "none.xml"))
	assert.Error(t, err)
}

func TestCLI_Show(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "1")
	mustRun(t, "set", file, "A2", "=A1 + 1")

	out := mustRun(t, "show", file)
	assert.Contains(t, out, "A1:A2 (2x1), 2 cells")
	assert.Contains(t, out, "  A2: =A1 + 1\n      = 2\n      reads A1\n")
}

func TestCLI_AliasConflict(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "1")
	mustRun(t, "set", file, "A2", "2")
	mustRun(t, "alias", file, "A1", "Width")

	_, err := run(t, "", "alias", file, "A2", "Width")
	assert.ErrorContains(t, err, "alias already in use")

	mustRun(t, "alias", file, "A2", "Width", "--force")
	out := mustRun(t, "get", file, "Width")
	assert.Equal(t, "A2\t2\t2\n", out)
}

func TestCLI_Mode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", `=["Title"]`)
	mustRun(t, "mode", file, "A1", "Label", "--persistent")
	mustRun(t, "set", file, "B1", "=true")
	mustRun(t, "mode", file, "B1", "CheckBox")

	out := mustRun(t, "show", file)
	assert.Contains(t, out, "mode=Label,persistent")
	assert.Contains(t, out, "mode=CheckBox")

	_, err := run(t, "", "mode", file, "A1", "Slider")
	assert.ErrorContains(t, err, "unknown edit mode")

	_, err = run(t, "", "mode", file, "B1", "Combo")
	assert.ErrorContains(t, err, "type mismatch")
}

func TestCLI_Validate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "1")
	mustRun(t, "validate", file)

	mustRun(t, "set", file, "A2", "=A3")
	mustRun(t, "set", file, "A3", "=A2")
	out, err := run(t, "", "validate", file)
	assert.ErrorContains(t, err, "issues are errors")
	assert.Contains(t, out, "[ERROR] A2: ")
}

func TestCLI_ExportImport(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "params.xml")
	book := filepath.Join(dir, "params.xlsx")
	mustRun(t, "set", file, "A1", "10")
	mustRun(t, "alias", file, "A1", "Width")
	mustRun(t, "set", file, "A2", "=Width * 2")
	mustRun(t, "export", file, book, "--sheet", "Params")

	copied := filepath.Join(dir, "copy.xml")
	mustRun(t, "import", book, copied, "--sheet", "Params")
	out := mustRun(t, "get", copied, "A2", "Width")
	assert.Equal(t, "A2\t=Width * 2\t20\nA1\t10\t10\n", out)
}

func TestCLI_ConfigSheetName(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("workbook_sheet: Params\n"), 0o644))
	file := filepath.Join(dir, "params.xml")
	book := filepath.Join(dir, "params.xlsx")
	mustRun(t, "set", file, "A1", "1")
	mustRun(t, "--config", config, "export", file, book)

	_, err := run(t, "", "import", book, filepath.Join(dir, "out.xml"), "--sheet", "Params")
	assert.NoError(t, err)
}

func TestCLI_CopyAndPaste(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.xml")
	mustRun(t, "set", file, "A1", "1")
	mustRun(t, "set", file, "B1", "=A1+1")

	out := mustRun(t, "copy", file, "A1:B1", "--print")
	assert.Equal(t, "1\t=A1+1\n", out)

	_, err := run(t, out, "paste", file, "A2", "--stdin")
	require.NoError(t, err)
	assert.Equal(t, "A2\t1\t1\nB2\t=A1+1\t2\n", mustRun(t, "get", file, "A2", "B2"))

	_, err = run(t, out, "paste", file, "A3", "--stdin", "--type", "sideways")
	assert.ErrorContains(t, err, "unknown paste type")
}

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it. Both runFile's printed program output and the
// disassembler go straight to os.Stdout, so this is the only way to
// observe them from a test.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestRunFileExecutesSourceScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.lox")
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + 2;`), 0o644))

	out := captureStdout(t, func() {
		err := runFile(path)
		require.NoError(t, err)
	})
	assert.Equal(t, "3\n", out)
}

func TestCompileThenRunLoxcRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.lox")
	require.NoError(t, os.WriteFile(src, []byte(`print "hi" + " there";`), 0o644))

	compile := newCompileCommand()
	require.NoError(t, compile.Flags().Set("output", filepath.Join(dir, "prog.loxc")))
	require.NoError(t, compile.RunE(compile, []string{src}))

	compiled := filepath.Join(dir, "prog.loxc")
	_, err := os.Stat(compiled)
	require.NoError(t, err)

	out := captureStdout(t, func() {
		err := runFile(compiled)
		require.NoError(t, err)
	})
	assert.Equal(t, "hi there\n", out)
}

func TestDisassembleCommandHandlesSourceAndLoxc(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "add.lox")
	require.NoError(t, os.WriteFile(src, []byte(`
fun add(a, b) {
  return a + b;
}
print add(1, 2);
`), 0o644))

	disasm := newDisassembleCommand()
	out := captureStdout(t, func() {
		require.NoError(t, disasm.RunE(disasm, []string{src}))
	})
	assert.Contains(t, out, "OP_CLOSURE")
	assert.Contains(t, out, "OP_CALL")

	compile := newCompileCommand()
	compiled := filepath.Join(dir, "add.loxc")
	require.NoError(t, compile.Flags().Set("output", compiled))
	require.NoError(t, compile.RunE(compile, []string{src}))

	out2 := captureStdout(t, func() {
		require.NoError(t, disasm.RunE(disasm, []string{compiled}))
	})
	assert.Contains(t, out2, "OP_CLOSURE")
}

func TestFlagNormalizationAcceptsUnderscoreSpelling(t *testing.T) {
	root := newRootCommand()
	f := root.PersistentFlags().Lookup("debug-print-code")
	require.NotNil(t, f)

	normalized := root.PersistentFlags().GetNormalizeFunc()
	assert.Equal(t, "debug-print-code", string(normalized(root.PersistentFlags(), "debug_print_code")))
	assert.True(t, strings.HasPrefix(root.Use, "lox"))
}

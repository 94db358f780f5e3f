package debug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/compiler"
	"github.com/kristofer/lox/pkg/gc"
	"github.com/kristofer/lox/pkg/value"
)

func TestDisassembleSimpleChunk(t *testing.T) {
	c := bytecode.NewChunk()
	idx, err := c.AddConstant(value.NumberValue(1.5))
	if err != nil {
		t.Fatal(err)
	}
	c.Write(byte(bytecode.OpConstant), 1)
	c.Write(byte(idx), 1)
	c.Write(byte(bytecode.OpReturn), 1)

	out := DisassembleChunk(c, "test")
	assert.Contains(t, out, "== test ==")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "OP_RETURN")
}

func TestDisassembleSharesLineMarkerForRepeatedLines(t *testing.T) {
	c := bytecode.NewChunk()
	c.Write(byte(bytecode.OpNil), 5)
	c.Write(byte(bytecode.OpPop), 5)

	out := DisassembleChunk(c, "lines")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// First real instruction line carries the source line number, the
	// second repeats it as "   | " instead.
	assert.Contains(t, lines[1], "5")
	assert.Contains(t, lines[2], "|")
}

func TestDisassembleCompiledProgram(t *testing.T) {
	g := gc.New(zap.NewNop().Sugar())
	fn, err := compiler.Compile(g, `
fun add(a, b) {
  return a + b;
}
print add(1, 2);
`)
	if err != nil {
		t.Fatal(err)
	}

	out := DisassembleChunk(fn.Chunk, "<script>")
	assert.Contains(t, out, "OP_CLOSURE")
	assert.Contains(t, out, "OP_CALL")
	assert.Contains(t, out, "OP_PRINT")
}

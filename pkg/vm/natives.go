package vm

import (
	"bufio"
	"os"
	"time"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

var startTime = time.Now()

var stdinReader = bufio.NewReader(os.Stdin)

// defineNatives binds the host functions every lox program can call
// without a class or import: clock(), to_string(v), and readline(). Each
// closes over vm so it can intern any string it allocates through the
// shared GC instead of bypassing its accounting. Like clox's own natives,
// these don't validate argument count — extra arguments are silently
// ignored and a missing one is read as nil.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", func(args []value.Value) (value.Value, bool) {
		return value.NumberValue(time.Since(startTime).Seconds()), true
	})

	vm.defineNative("to_string", func(args []value.Value) (value.Value, bool) {
		var arg value.Value
		if len(args) > 0 {
			arg = args[0]
		}
		return value.ObjVal(vm.gc.InternString(object.Stringify(arg))), true
	})

	vm.defineNative("readline", func(args []value.Value) (value.Value, bool) {
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return value.ObjVal(vm.gc.InternString("readline: end of input.")), false
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return value.ObjVal(vm.gc.InternString(line)), true
	})
}

func (vm *VM) defineNative(name string, fn object.NativeFn) {
	vm.globals.Set(vm.gc.InternString(name), value.ObjVal(vm.gc.NewNative(name, fn)))
}

package object

import (
	"fmt"

	"github.com/kristofer/lox/pkg/value"
)

// Stringify renders any Value, including the heap object variants that
// value.Value.String alone can't format (it knows nothing about this
// package's types). This is what OP_PRINT and the to_string native both
// call.
func Stringify(v value.Value) string {
	if !v.IsObj() {
		return v.String()
	}

	switch o := v.AsObj().(type) {
	case *String:
		return o.Chars
	case *Function:
		if o.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", o.Name.Chars)
	case *Native:
		return "<native fn>"
	case *Closure:
		return Stringify(value.ObjVal(o.Function))
	case *Upvalue:
		return "<upvalue>"
	case *Class:
		return o.Name.Chars
	case *Instance:
		return fmt.Sprintf("%s instance", o.Class.Name.Chars)
	case *BoundMethod:
		return Stringify(value.ObjVal(o.Method.Function))
	default:
		return "<obj>"
	}
}

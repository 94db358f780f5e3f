package gc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

// The .loxc format stores a compiled Function (and, recursively, every
// nested Function reachable through its constant pool) as a flat binary
// blob, so a script can be compiled once and run or disassembled later
// without re-parsing source. Layout:
//
//	Header:    magic uint32 "LOXC", version uint32
//	Function:  arity int32, upvalueCount int32, name (uint32 length + bytes, untagged)
//	           code: count uint32 + bytes
//	           lines: int32 per code byte
//	           constants: count uint32, then one tagged value per constant
//
// Constant tags: 1=number, 2=string, 3=true, 4=false, 5=nil, 6=function
// (written recursively in the same Function layout above).
const (
	loxcMagic   uint32 = 0x4C4F5843 // "LOXC"
	loxcVersion uint32 = 1

	tagNumber   byte = 1
	tagString   byte = 2
	tagTrue     byte = 3
	tagFalse    byte = 4
	tagNil      byte = 5
	tagFunction byte = 6
)

// EncodeFunction writes fn, and every function nested in its constant
// pool, to w in the .loxc format.
func EncodeFunction(fn *object.Function, w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, loxcMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, loxcVersion); err != nil {
		return err
	}
	return writeFunction(w, fn)
}

func writeFunction(w io.Writer, fn *object.Function) error {
	if err := binary.Write(w, binary.LittleEndian, int32(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(fn.UpvalueCount)); err != nil {
		return err
	}

	name := ""
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	if err := writeRawString(w, name); err != nil {
		return err
	}

	code := fn.Chunk.Code
	if err := binary.Write(w, binary.LittleEndian, uint32(len(code))); err != nil {
		return err
	}
	if _, err := w.Write(code); err != nil {
		return err
	}
	for _, line := range fn.Chunk.Lines {
		if err := binary.Write(w, binary.LittleEndian, line); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(fn.Chunk.Constants))); err != nil {
		return err
	}
	for i, c := range fn.Chunk.Constants {
		if err := writeConstant(w, c); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

func writeConstant(w io.Writer, v value.Value) error {
	switch {
	case v.IsNil():
		return binary.Write(w, binary.LittleEndian, tagNil)
	case v.IsBool():
		tag := tagFalse
		if v.AsBool() {
			tag = tagTrue
		}
		return binary.Write(w, binary.LittleEndian, tag)
	case v.IsNumber():
		if err := binary.Write(w, binary.LittleEndian, tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v.AsNumber())
	case v.IsObjType(value.ObjTypeString):
		if err := binary.Write(w, binary.LittleEndian, tagString); err != nil {
			return err
		}
		return writeRawString(w, object.AsString(v).Chars)
	case v.IsObjType(value.ObjTypeFunction):
		if err := binary.Write(w, binary.LittleEndian, tagFunction); err != nil {
			return err
		}
		return writeFunction(w, object.AsFunction(v))
	default:
		return fmt.Errorf("constant type not serializable: %T", v.AsObj())
	}
}

func writeRawString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readRawString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// DecodeFunction reads a .loxc blob from r, allocating every String and
// Function it contains through g so the result participates in this
// heap's GC accounting exactly like a freshly compiled program would.
func (g *GC) DecodeFunction(r io.Reader) (*object.Function, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != loxcMagic {
		return nil, fmt.Errorf("not a .loxc file (bad magic 0x%08x)", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != loxcVersion {
		return nil, fmt.Errorf("unsupported .loxc version %d", version)
	}
	return g.readFunction(r)
}

func (g *GC) readFunction(r io.Reader) (*object.Function, error) {
	var arity, upvalueCount int32
	if err := binary.Read(r, binary.LittleEndian, &arity); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &upvalueCount); err != nil {
		return nil, err
	}
	name, err := readRawString(r)
	if err != nil {
		return nil, err
	}

	fn := g.NewFunction()
	fn.Arity = int(arity)
	fn.UpvalueCount = int(upvalueCount)
	if name != "" {
		fn.Name = g.InternString(name)
	}

	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	fn.Chunk.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(r, fn.Chunk.Code); err != nil {
		return nil, err
	}
	fn.Chunk.Lines = make([]int32, codeLen)
	for i := range fn.Chunk.Lines {
		if err := binary.Read(r, binary.LittleEndian, &fn.Chunk.Lines[i]); err != nil {
			return nil, err
		}
	}

	var constCount uint32
	if err := binary.Read(r, binary.LittleEndian, &constCount); err != nil {
		return nil, err
	}
	fn.Chunk.Constants = make([]value.Value, constCount)
	for i := range fn.Chunk.Constants {
		v, err := g.readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		fn.Chunk.Constants[i] = v
	}
	return fn, nil
}

func (g *GC) readConstant(r io.Reader) (value.Value, error) {
	var tag byte
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return value.NilValue(), err
	}
	switch tag {
	case tagNil:
		return value.NilValue(), nil
	case tagTrue:
		return value.BoolValue(true), nil
	case tagFalse:
		return value.BoolValue(false), nil
	case tagNumber:
		var n float64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return value.NilValue(), err
		}
		return value.NumberValue(n), nil
	case tagString:
		s, err := readRawString(r)
		if err != nil {
			return value.NilValue(), err
		}
		return value.ObjVal(g.InternString(s)), nil
	case tagFunction:
		fn, err := g.readFunction(r)
		if err != nil {
			return value.NilValue(), err
		}
		return value.ObjVal(fn), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown constant tag 0x%02x", tag)
	}
}

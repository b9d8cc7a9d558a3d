package containers

import (
	"fmt"
	"strconv"

	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Value is a scalar map value, one of the FIRST kinds:
// Float, Integer, Reference (to a nested container), String, Term.
type Value struct {
	Kind  byte
	Int   int64
	Float float64
	Str   string
	Ref   ID
}

const (
	Float     = byte('F')
	Integer   = byte('I')
	Reference = byte('R')
	String    = byte('S')
	Term      = byte('T')
)

const (
	termTrue  = "true"
	termFalse = "false"
	termNull  = "null"
)

func Int(i int64) Value { return Value{Kind: Integer, Int: i} }
func Flt(f float64) Value { return Value{Kind: Float, Float: f} }
func Str(s string) Value { return Value{Kind: String, Str: s} }
func Null() Value { return Value{Kind: Term, Str: termNull} }
func RefTo(child ID) Value { return Value{Kind: Reference, Ref: child} }

func Bool(b bool) Value {
	if b {
		return Value{Kind: Term, Str: termTrue}
	}
	return Value{Kind: Term, Str: termFalse}
}

// ValueOf converts a plain Go value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Flt(float64(t)), nil
	case float64:
		return Flt(t), nil
	case string:
		return Str(t), nil
	case ID:
		return RefTo(t), nil
	}
	return Value{}, errors.Wrapf(weave_errors.ErrBadChange, "unsupported value type %T", v)
}

func (v Value) IsRef() bool {
	return v.Kind == Reference
}

// Native returns int64, float64, string, bool, nil or ID.
func (v Value) Native() any {
	switch v.Kind {
	case Integer:
		return v.Int
	case Float:
		return v.Float
	case String:
		return v.Str
	case Reference:
		return v.Ref
	case Term:
		switch v.Str {
		case termTrue:
			return true
		case termFalse:
			return false
		}
	}
	return nil
}

func (v Value) Valid() bool {
	switch v.Kind {
	case Integer, Float, String:
		return true
	case Term:
		return v.Str == termTrue || v.Str == termFalse || v.Str == termNull
	case Reference:
		return v.Ref.Valid()
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case String:
		return strconv.Quote(v.Str)
	case Term:
		return v.Str
	case Reference:
		return v.Ref.String()
	}
	return fmt.Sprintf("?%c", v.Kind)
}

// ParseValue reads the String() form back; bare words are terms.
func ParseValue(s string) (Value, error) {
	switch s {
	case termTrue, termFalse, termNull:
		return Value{Kind: Term, Str: s}, nil
	}
	if len(s) > 0 && s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, errors.Wrap(weave_errors.ErrBadRecord, err.Error())
		}
		return Str(unq), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Flt(f), nil
	}
	if id, err := ParseID(s); err == nil {
		return RefTo(id), nil
	}
	return Str(s), nil
}

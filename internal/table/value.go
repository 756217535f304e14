package table

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the primitive type of a column.
type Kind int

const (
	String Kind = iota
	Integer
	Double
	Boolean
	Date
)

var kindNames = [...]string{"String", "Integer", "Double", "Boolean", "Date"}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind for a schema type name such as "Integer".
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return String, fmt.Errorf("unknown column kind %q", name)
}

// Value is a nullable typed cell. The zero Value is a null String.
type Value struct {
	kind  Kind
	valid bool
	s     string
	i     int64
	f     float64
	b     bool
	t     time.Time
}

// Null returns a null cell of the given kind.
func Null(k Kind) Value { return Value{kind: k} }

// TextValue returns a String cell.
func TextValue(s string) Value { return Value{kind: String, valid: true, s: s} }

// IntValue returns an Integer cell.
func IntValue(i int64) Value { return Value{kind: Integer, valid: true, i: i} }

// FloatValue returns a Double cell.
func FloatValue(f float64) Value { return Value{kind: Double, valid: true, f: f} }

// BoolValue returns a Boolean cell.
func BoolValue(b bool) Value { return Value{kind: Boolean, valid: true, b: b} }

// DateValue returns a Date cell.
func DateValue(t time.Time) Value { return Value{kind: Date, valid: true, t: t} }

// Kind returns the cell's kind. Null cells keep the kind they were created with.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool { return !v.valid }

// AsText returns the text of a String cell.
func (v Value) AsText() (string, bool) {
	if !v.valid || v.kind != String {
		return "", false
	}
	return v.s, true
}

// AsInt returns the value of an Integer cell.
func (v Value) AsInt() (int64, bool) {
	if !v.valid || v.kind != Integer {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the numeric value of an Integer or Double cell.
func (v Value) AsFloat() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	switch v.kind {
	case Double:
		return v.f, true
	case Integer:
		return float64(v.i), true
	}
	return 0, false
}

// AsBool returns the value of a Boolean cell.
func (v Value) AsBool() (bool, bool) {
	if !v.valid || v.kind != Boolean {
		return false, false
	}
	return v.b, true
}

// AsTime returns the value of a Date cell.
func (v Value) AsTime() (time.Time, bool) {
	if !v.valid || v.kind != Date {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the cell the way it is written to CSV. Null renders empty.
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.b)
	case Date:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return v.s
	}
}

// Key returns a kind-tagged join key. Null cells have no key, and cells of
// different kinds never share one, so "5" and 5 do not join.
func (v Value) Key() (string, bool) {
	if !v.valid {
		return "", false
	}
	return strconv.Itoa(int(v.kind)) + ":" + v.String(), true
}

// Interface returns the cell as a driver-friendly Go value, or nil when null.
func (v Value) Interface() any {
	if !v.valid {
		return nil
	}
	switch v.kind {
	case Integer:
		return v.i
	case Double:
		return v.f
	case Boolean:
		return v.b
	case Date:
		return v.t
	default:
		return v.s
	}
}

// Or returns v unless it is null, in which case it returns other.
func (v Value) Or(other Value) Value {
	if v.valid {
		return v
	}
	return other
}

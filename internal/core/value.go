// Package core holds the table model shared by every storage backend and the
// pure derivations computed on top of loaded tables.
package core

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical on-disk and on-wire date format.
const DateLayout = "2006-01-02"

// Kind identifies which scalar a Value carries.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "absent"
	}
}

// Value is a tagged scalar cell. The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	date time.Time
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number builds a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date builds a date value truncated to the calendar day in UTC.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a date value from year, month, day.
func NewDate(year, month, day int) Value {
	return Date(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

// Kind reports the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value carries nothing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsNumber returns the numeric content. Strings holding a number are
// converted; everything else reports false.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := ParseNumber(v.str)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsBool returns the boolean content of a bool value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsDate returns the date content. Strings holding an ISO date are converted.
func (v Value) AsDate() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.date, true
	case KindString:
		t, err := time.Parse(DateLayout, strings.TrimSpace(v.str))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// String is the canonical stringification: numbers without trailing zeros,
// booleans as "true"/"false", dates as YYYY-MM-DD, absent as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports whether two values carry the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

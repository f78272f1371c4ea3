// This file contains the text cell codec shared by the flat-file and
// spreadsheet backends.
package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidNumber is returned by ParseNumber for unparseable input.
var ErrInvalidNumber = errors.New("invalid number")

// ParseNumber converts a decimal string to a float.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Thousands separators are not supported.
//
// Examples:
//
//	ParseNumber("12.34") -> 12.34, nil
//	ParseNumber("12,34") -> 12.34, nil
//	ParseNumber("-3")    -> -3, nil
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			return 0, ErrInvalidNumber
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" {
		return 0, ErrInvalidNumber
	}
	parts := strings.Split(body, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidNumber
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidNumber
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return f, nil
}

// ParseCell turns raw cell text into a tagged value. Booleans
// (TRUE/FALSE in any case), numbers and ISO dates are recognised; anything
// else is kept as a string. Blank text is absent.
func ParseCell(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, err := ParseNumber(trimmed); err == nil {
		return Number(f)
	}
	if t, err := time.Parse(DateLayout, trimmed); err == nil {
		return Date(t)
	}
	return String(trimmed)
}

// FormatCell is the inverse of ParseCell for text backends.
func FormatCell(v Value) string {
	if v.kind == KindBool {
		if v.b {
			return "True"
		}
		return "False"
	}
	return v.String()
}

// FromAny converts a decoded scalar (as produced by encoding/json or the
// Sheets API) into a Value. Strings go through ParseCell.
func FromAny(in any) Value {
	switch x := in.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case string:
		return ParseCell(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case time.Time:
		return Date(x)
	default:
		return Value{}
	}
}

// ToAny converts a Value into a plain scalar suitable for JSON or the Sheets
// API. Dates become YYYY-MM-DD strings and absent values become nil.
func ToAny(v Value) any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return nil
	}
}

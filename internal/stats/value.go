// Package stats provides the numeric reductions used by trade reports.
package stats

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// NotAvailable is the text rendering of an undefined value.
const NotAvailable = "N/A"

// Value is either a defined float64 or undefined. Undefined means there was no
// data to reduce and is never the same thing as zero.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps a concrete number. NaN and infinities are treated as undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{}
}

// Get returns the number and whether it is defined.
func (x Value) Get() (float64, bool) {
	return x.v, x.ok
}

// IsDefined reports whether x carries a number.
func (x Value) IsDefined() bool {
	return x.ok
}

// Round rounds half away from zero to the given number of decimal places.
func (x Value) Round(places int32) Value {
	if !x.ok {
		return x
	}
	return Defined(decimal.NewFromFloat(x.v).Round(places).InexactFloat64())
}

// Format renders the value with fixed decimal places, or N/A.
func (x Value) Format(places int32) string {
	if !x.ok {
		return NotAvailable
	}
	return decimal.NewFromFloat(x.v).StringFixed(places)
}

// String implements fmt.Stringer.
func (x Value) String() string {
	if !x.ok {
		return NotAvailable
	}
	return strconv.FormatFloat(x.v, 'g', -1, 64)
}

// MarshalJSON encodes undefined as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON accepts a number or null.
func (x *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*x = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*x = Defined(v)
	return nil
}

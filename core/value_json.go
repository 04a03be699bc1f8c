package core

import (
	"fmt"
	"math"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

type encodedValue struct {
	Kind   string  `json:"kind"`
	Text   string  `json:"text,omitempty"`
	Number float64 `json:"number,omitempty"`
	// NaN, +Inf and -Inf have no JSON number form
	NonFinite string     `json:"nonFinite,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Bool      bool       `json:"bool,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	enc := encodedValue{Kind: v.kind.String()}
	switch v.kind {
	case StringKind, URLKind:
		enc.Text = v.str
	case NumberKind:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			enc.NonFinite = strconv.FormatFloat(v.num, 'g', -1, 64)
		} else {
			enc.Number = v.num
		}
	case DateKind:
		date := v.date
		enc.Date = &date
	case BooleanKind:
		enc.Bool = v.b
	}
	return json.Marshal(enc)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var enc encodedValue
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}

	switch enc.Kind {
	case "Null", "":
		*v = Null()
	case "String":
		*v = String(enc.Text)
	case "Url":
		*v = URL(enc.Text)
	case "Number":
		if enc.NonFinite == "" {
			*v = Number(enc.Number)
			break
		}
		n, err := strconv.ParseFloat(enc.NonFinite, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", enc.NonFinite, err)
		}
		*v = Number(n)
	case "Date":
		if enc.Date == nil {
			return fmt.Errorf("date value without timestamp")
		}
		*v = Date(*enc.Date)
	case "Boolean":
		*v = Boolean(enc.Bool)
	default:
		return fmt.Errorf("unknown value kind %q", enc.Kind)
	}
	return nil
}

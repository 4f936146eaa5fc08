package labels

import (
	"fmt"
	"strconv"
	"strings"
)

// PointsToMM converts typographic points to millimetres.
const PointsToMM = 0.3515

// Kind is the coerced type of an item value.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindCoord
)

// Value is a typed item value.
type Value struct {
	Kind  Kind
	Float float64
	Int   int
	X, Y  float64
	Str   string
}

// Number returns the value as a float when it is numeric.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindCoord:
		return fmt.Sprintf("%g,%g", v.X, v.Y)
	default:
		return v.Str
	}
}

// Coerce converts item text according to its declared type: float, int,
// coord ("x,y") or string. Strings ending in "pt" become millimetres.
func Coerce(typ, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch typ {
	case "float":
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("float %q: %w", text, err)
		}
		return Value{Kind: KindFloat, Float: f}, nil
	case "int":
		i, err := strconv.Atoi(text)
		if err != nil {
			return Value{}, fmt.Errorf("int %q: %w", text, err)
		}
		return Value{Kind: KindInt, Int: i}, nil
	case "coord":
		x, y, err := ParseCoord(text)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindCoord, X: x, Y: y}, nil
	default:
		if pts, ok := strings.CutSuffix(text, "pt"); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(pts), 64)
			if err != nil {
				return Value{}, fmt.Errorf("length %q: %w", text, err)
			}
			return Value{Kind: KindFloat, Float: f * PointsToMM}, nil
		}
		return Value{Kind: KindString, Str: text}, nil
	}
}

// ParseCoord parses "x,y".
func ParseCoord(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoord, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoord, s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoord, s)
	}
	return x, y, nil
}

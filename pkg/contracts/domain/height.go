package domain

import (
	"math"
	"strconv"
	"strings"
)

// HeightKind classifies a single height cell
type HeightKind int

const (
	// HeightAbsent is an empty slot (no child recorded)
	HeightAbsent HeightKind = iota
	// HeightNumeric is a measured or imputed height in inches above the baseline
	HeightNumeric
	// HeightLabel is a categorical descriptor awaiting imputation
	HeightLabel
)

// String returns the kind name used in logs and errors
func (k HeightKind) String() string {
	switch k {
	case HeightAbsent:
		return "absent"
	case HeightNumeric:
		return "numeric"
	case HeightLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Height is one height cell of a family table.
// The source text is kept so untouched cells are written back byte-identical.
type Height struct {
	Kind  HeightKind
	Value float64
	Label string
	text  string
}

// ParseHeight classifies a raw cell. Empty cells are absent, anything that
// parses as a finite float is numeric, everything else is a label.
func ParseHeight(raw string) Height {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Height{Kind: HeightAbsent}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return Height{Kind: HeightNumeric, Value: v, text: s}
	}
	return Height{Kind: HeightLabel, Label: s, text: s}
}

// NumericHeight builds a numeric height from a value
func NumericHeight(v float64) Height {
	return Height{Kind: HeightNumeric, Value: v, text: FormatHeight(v)}
}

// IsAbsent reports whether the slot is empty
func (h Height) IsAbsent() bool { return h.Kind == HeightAbsent }

// IsNumeric reports whether the cell holds a number
func (h Height) IsNumeric() bool { return h.Kind == HeightNumeric }

// IsLabel reports whether the cell still holds a categorical descriptor
func (h Height) IsLabel() bool { return h.Kind == HeightLabel }

// String returns the cell text as written to CSV
func (h Height) String() string {
	switch h.Kind {
	case HeightAbsent:
		return ""
	case HeightNumeric:
		if h.text != "" {
			return h.text
		}
		return FormatHeight(h.Value)
	default:
		if h.text != "" {
			return h.text
		}
		return h.Label
	}
}

// FormatHeight renders a height the way a float column is written:
// shortest round-trip form, always with a fractional part (7 -> "7.0").
func FormatHeight(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

package paramsheet

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/javajack/paramsheet/expression"
)

// Alignment is a bit set of one horizontal and one vertical alignment.
// The implied bits mark an alignment chosen by default rather than by the
// user.
type Alignment int

const (
	AlignLeft       Alignment = 0x01
	AlignHCenter    Alignment = 0x02
	AlignRight      Alignment = 0x04
	AlignHImplied   Alignment = 0x08
	AlignHorizontal Alignment = 0x0f
	AlignTop        Alignment = 0x10
	AlignVCenter    Alignment = 0x20
	AlignBottom     Alignment = 0x40
	AlignVImplied   Alignment = 0x80
	AlignVertical   Alignment = 0xf0
)

// DefaultAlignment is left, vertically centered, both implied.
const DefaultAlignment = AlignHImplied | AlignLeft | AlignVImplied | AlignVCenter

// DecodeAlignment applies one alignment token to a.
func DecodeAlignment(token string, a Alignment) (Alignment, error) {
	switch token {
	case "":
		return a, nil
	case "himplied":
		if a&AlignHorizontal == 0 {
			a |= AlignLeft
		}
		return a | AlignHImplied, nil
	case "left":
		return a&^AlignHorizontal | AlignLeft, nil
	case "center":
		return a&^AlignHorizontal | AlignHCenter, nil
	case "right":
		return a&^AlignHorizontal | AlignRight, nil
	case "vimplied":
		if a&AlignVertical == 0 {
			a |= AlignVCenter
		}
		return a | AlignVImplied, nil
	case "top":
		return a&^AlignVertical | AlignTop, nil
	case "vcenter":
		return a&^AlignVertical | AlignVCenter, nil
	case "bottom":
		return a&^AlignVertical | AlignBottom, nil
	}
	return a, fmt.Errorf("%w: %q", ErrInvalidAlignment, token)
}

// ParseAlignment decodes a '|' separated token list such as "left|top".
func ParseAlignment(s string) (Alignment, error) {
	var a Alignment
	for _, tok := range strings.Split(s, "|") {
		var err error
		if a, err = DecodeAlignment(strings.TrimSpace(tok), a); err != nil {
			return 0, err
		}
	}
	return a, nil
}

// String encodes the alignment as '|' separated tokens.
func (a Alignment) String() string {
	var h, v []string
	switch {
	case a&AlignLeft != 0:
		h = append(h, "left")
	case a&AlignHCenter != 0:
		h = append(h, "center")
	case a&AlignRight != 0:
		h = append(h, "right")
	}
	if a&AlignHImplied != 0 {
		h = append(h, "himplied")
	}
	switch {
	case a&AlignTop != 0:
		v = append(v, "top")
	case a&AlignVCenter != 0:
		v = append(v, "vcenter")
	case a&AlignBottom != 0:
		v = append(v, "bottom")
	}
	if a&AlignVImplied != 0 {
		v = append(v, "vimplied")
	}
	return strings.Join(append(h, v...), "|")
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	Black = Color{0, 0, 0, 1}
	White = Color{1, 1, 1, 1}
)

// String encodes the color as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B), channel(c.A))
}

func channel(v float64) int {
	return int(math.Max(0, math.Min(1, v)) * 255)
}

// Packed returns the color as 0xRRGGBBAA.
func (c Color) Packed() uint32 {
	return uint32(channel(c.R))<<24 | uint32(channel(c.G))<<16 | uint32(channel(c.B))<<8 | uint32(channel(c.A))
}

// ColorFromPacked decodes a 0xRRGGBBAA value.
func ColorFromPacked(p uint32) Color {
	return Color{
		R: float64(p>>24&0xff) / 255,
		G: float64(p>>16&0xff) / 255,
		B: float64(p>>8&0xff) / 255,
		A: float64(p&0xff) / 255,
	}
}

// ParseColor decodes "#rrggbb" or "#rrggbbaa". A missing alpha is opaque.
func ParseColor(s string) (Color, error) {
	if (len(s) != 7 && len(s) != 9) || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	var r, g, b, a uint32
	a = 0xff
	var err error
	if len(s) == 7 {
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	} else {
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &r, &g, &b, &a)
	}
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return ColorFromPacked(r<<24 | g<<16 | b<<8 | a), nil
}

// decodeColor is ParseColor with a fallback for malformed input.
func decodeColor(s string, def Color) Color {
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

// colorFromValue converts an evaluated 3 or 4 element sequence to a color.
func colorFromValue(v any) (Color, bool) {
	items, ok := v.([]any)
	if !ok || len(items) < 3 || len(items) > 4 {
		return Color{}, false
	}
	comp := [4]float64{0, 0, 0, 1}
	for i, item := range items {
		q, ok := expression.AsQuantity(item)
		if !ok || !q.Unit.IsEmpty() {
			return Color{}, false
		}
		comp[i] = q.Value
	}
	return Color{comp[0], comp[1], comp[2], comp[3]}, true
}

// normalizeStyle returns the sorted, de-duplicated non-empty tags.
func normalizeStyle(tags []string) []string {
	set := map[string]bool{}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func encodeStyle(tags []string) string {
	return strings.Join(tags, "|")
}

func decodeStyle(s string) []string {
	return normalizeStyle(strings.Split(s, "|"))
}

// DisplayUnit is the unit a cell's quantity is displayed in.
type DisplayUnit struct {
	Text  string
	Unit  expression.Unit
	Scale float64
}

// ParseDisplayUnit parses a unit expression such as "mm" or "kg*m/s^2". An
// empty string yields the empty display unit.
func ParseDisplayUnit(text string) (DisplayUnit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DisplayUnit{}, nil
	}
	u, scale, err := expression.ParseUnit(text)
	if err != nil {
		return DisplayUnit{}, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}
	return DisplayUnit{Text: text, Unit: u, Scale: scale}, nil
}

// IsEmpty reports whether no display unit is set.
func (d DisplayUnit) IsEmpty() bool { return d.Text == "" }

// Compatible reports whether quantities of unit u can be shown in d.
func (d DisplayUnit) Compatible(u expression.Unit) bool {
	return !d.IsEmpty() && d.Unit == u
}

// Format renders q in the display unit with the given number of decimals.
func (d DisplayUnit) Format(q expression.Quantity, decimals int) string {
	if !d.Compatible(q.Unit) {
		return q.Format(decimals)
	}
	return expression.Quantity{Value: q.In(d.Scale)}.Format(decimals) + " " + d.Text
}

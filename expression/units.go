package expression

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownUnit is returned when a unit expression names an unknown unit.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is a dimension vector over the base units mm, kg, s and deg.
type Unit struct {
	Length int8
	Mass   int8
	Time   int8
	Angle  int8
}

// Dimensionless is the unit of plain numbers.
var Dimensionless = Unit{}

var (
	unitLength   = Unit{Length: 1}
	unitArea     = Unit{Length: 2}
	unitVolume   = Unit{Length: 3}
	unitMass     = Unit{Mass: 1}
	unitTime     = Unit{Time: 1}
	unitAngle    = Unit{Angle: 1}
	unitForce    = Unit{Length: 1, Mass: 1, Time: -2}
	unitPressure = Unit{Length: -1, Mass: 1, Time: -2}
	unitEnergy   = Unit{Length: 2, Mass: 1, Time: -2}
	unitPower    = Unit{Length: 2, Mass: 1, Time: -3}
	unitFreq     = Unit{Time: -1}
	unitVelocity = Unit{Length: 1, Time: -1}
)

type unitDef struct {
	unit  Unit
	scale float64 // factor to the base units
}

// unitTable maps unit symbols to their dimension and scale.
var unitTable = map[string]unitDef{
	// length
	"nm":   {unitLength, 1e-6},
	"um":   {unitLength, 1e-3},
	"mm":   {unitLength, 1},
	"cm":   {unitLength, 10},
	"dm":   {unitLength, 100},
	"m":    {unitLength, 1e3},
	"km":   {unitLength, 1e6},
	"thou": {unitLength, 0.0254},
	"mil":  {unitLength, 0.0254},
	"in":   {unitLength, 25.4},
	"ft":   {unitLength, 304.8},
	"yd":   {unitLength, 914.4},
	"mi":   {unitLength, 1609344},
	// area and volume
	"ha": {unitArea, 1e10},
	"l":  {unitVolume, 1e6},
	"ml": {unitVolume, 1e3},
	// mass
	"ug": {unitMass, 1e-9},
	"mg": {unitMass, 1e-6},
	"g":  {unitMass, 1e-3},
	"kg": {unitMass, 1},
	"t":  {unitMass, 1e3},
	"oz": {unitMass, 0.028349523125},
	"lb": {unitMass, 0.45359237},
	// time
	"ms":  {unitTime, 1e-3},
	"s":   {unitTime, 1},
	"min": {unitTime, 60},
	"h":   {unitTime, 3600},
	// angle
	"deg": {unitAngle, 1},
	"rad": {unitAngle, 180 / math.Pi},
	"gon": {unitAngle, 0.9},
	// derived
	"N":   {unitForce, 1e3},
	"kN":  {unitForce, 1e6},
	"Pa":  {unitPressure, 1e-3},
	"kPa": {unitPressure, 1},
	"MPa": {unitPressure, 1e3},
	"GPa": {unitPressure, 1e6},
	"J":   {unitEnergy, 1e6},
	"kJ":  {unitEnergy, 1e9},
	"W":   {unitPower, 1e6},
	"kW":  {unitPower, 1e9},
	"Hz":  {unitFreq, 1},
	"kph": {unitVelocity, 1e6 / 3600},
	"mph": {unitVelocity, 1609344.0 / 3600},
}

// IsUnitName reports whether name is a known unit symbol.
func IsUnitName(name string) bool {
	_, ok := unitTable[name]
	return ok
}

// IsEmpty reports whether the unit is dimensionless.
func (u Unit) IsEmpty() bool {
	return u == Dimensionless
}

// Mul returns the product of two units.
func (u Unit) Mul(o Unit) Unit {
	return Unit{u.Length + o.Length, u.Mass + o.Mass, u.Time + o.Time, u.Angle + o.Angle}
}

// Div returns the quotient of two units.
func (u Unit) Div(o Unit) Unit {
	return Unit{u.Length - o.Length, u.Mass - o.Mass, u.Time - o.Time, u.Angle - o.Angle}
}

// Pow raises the unit to an integer power.
func (u Unit) Pow(n int) Unit {
	k := int8(n)
	return Unit{u.Length * k, u.Mass * k, u.Time * k, u.Angle * k}
}

// String returns the unit in base symbols, e.g. "mm*kg/s^2". The empty
// unit yields "".
func (u Unit) String() string {
	type part struct {
		sym string
		exp int8
	}
	parts := []part{{"mm", u.Length}, {"kg", u.Mass}, {"s", u.Time}, {"deg", u.Angle}}
	var num, den []string
	for _, p := range parts {
		switch {
		case p.exp > 0:
			num = append(num, powString(p.sym, p.exp))
		case p.exp < 0:
			den = append(den, powString(p.sym, -p.exp))
		}
	}
	if len(num) == 0 && len(den) == 0 {
		return ""
	}
	s := strings.Join(num, "*")
	if s == "" {
		s = "1"
	}
	for _, d := range den {
		s += "/" + d
	}
	return s
}

func powString(sym string, exp int8) string {
	if exp == 1 {
		return sym
	}
	return sym + "^" + strconv.Itoa(int(exp))
}

// ParseUnit parses a unit expression such as "mm", "mm^2", "kg*m/s^2" or
// "1/s" and returns its dimension and the scale to base units.
func ParseUnit(text string) (Unit, float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Unit{}, 0, fmt.Errorf("%w: empty unit", ErrUnknownUnit)
	}
	unit := Dimensionless
	scale := 1.0
	op := byte('*')
	for i, first := 0, true; i < len(s); first = false {
		j := i
		for j < len(s) && s[j] != '*' && s[j] != '/' {
			j++
		}
		term := strings.TrimSpace(s[i:j])
		u, sc, err := parseUnitTerm(term, first)
		if err != nil {
			return Unit{}, 0, fmt.Errorf("unit %q: %w", text, err)
		}
		if op == '*' {
			unit, scale = unit.Mul(u), scale*sc
		} else {
			unit, scale = unit.Div(u), scale/sc
		}
		if j < len(s) {
			op = s[j]
		}
		i = j + 1
		if j == len(s)-1 {
			return Unit{}, 0, fmt.Errorf("%w: dangling operator in %q", ErrUnknownUnit, text)
		}
	}
	return unit, scale, nil
}

func parseUnitTerm(term string, first bool) (Unit, float64, error) {
	if term == "1" && first {
		return Dimensionless, 1, nil
	}
	name, exp := term, 1
	if idx := strings.IndexByte(term, '^'); idx >= 0 {
		n, err := strconv.Atoi(term[idx+1:])
		if err != nil {
			return Unit{}, 0, fmt.Errorf("%w: bad exponent in %q", ErrUnknownUnit, term)
		}
		name, exp = term[:idx], n
	}
	def, ok := unitTable[name]
	if !ok {
		return Unit{}, 0, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return def.unit.Pow(exp), math.Pow(def.scale, float64(exp)), nil
}

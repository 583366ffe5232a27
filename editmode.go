package paramsheet

import (
	"fmt"
	"strconv"
)

// EditMode controls how a cell's value is presented and edited as
// structured data.
type EditMode int

const (
	EditNormal EditMode = iota
	EditButton
	EditCombo
	EditLabel
	EditQuantity
	EditCheckBox
	EditAutoAlias
	EditAutoAliasV
	EditColor
)

var editModeNames = [...]string{
	"Normal", "Button", "Combo", "Label", "Quantity", "CheckBox", "AutoAlias", "AutoAliasV", "Color",
}

var editModeLabels = [...]string{
	"Normal", "Button", "ComboBox", "Label", "Quantity", "CheckBox", "Auto alias", "Auto alias vertical", "Color",
}

// String returns the persistent name of the mode.
func (m EditMode) String() string {
	if m >= 0 && int(m) < len(editModeNames) {
		return editModeNames[m]
	}
	return "EditMode(" + strconv.Itoa(int(m)) + ")"
}

// Label returns a human-readable label.
func (m EditMode) Label() string {
	if m >= 0 && int(m) < len(editModeLabels) {
		return editModeLabels[m]
	}
	return m.String()
}

// IsValid reports whether m is a known mode.
func (m EditMode) IsValid() bool {
	return m >= EditNormal && m <= EditColor
}

// IsAutoAlias reports whether m is one of the auto-alias pseudo modes.
func (m EditMode) IsAutoAlias() bool {
	return m == EditAutoAlias || m == EditAutoAliasV
}

// ParseEditMode returns the mode with the given persistent name.
func ParseEditMode(name string) (EditMode, error) {
	for i, n := range editModeNames {
		if n == name {
			return EditMode(i), nil
		}
	}
	return EditNormal, fmt.Errorf("%w: %q", ErrUnknownEditMode, name)
}

// EditModes lists all modes in declaration order.
func EditModes() []EditMode {
	out := make([]EditMode, 0, len(editModeNames))
	for i := range editModeNames {
		out = append(out, EditMode(i))
	}
	return out
}

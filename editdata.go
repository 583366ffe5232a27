package paramsheet

import (
	"fmt"
	"slices"
	"sort"

	"github.com/javajack/paramsheet/expression"
)

// ComboData is the edit data of a Combo cell. Choices given as a map are
// selected by Key; choices given as a list are selected by the 1-based
// Index.
type ComboData struct {
	Key   string
	Index int
	Items []string
}

// QuantityData is the edit data of a Quantity cell. Unit and Scale come
// from the metadata map, or from the display unit when the map has none.
type QuantityData struct {
	Value expression.Quantity
	Unit  string
	Scale float64
	Step  *float64
	Min   *float64
	Max   *float64
}

// CheckBoxData is the edit data of a CheckBox cell.
type CheckBoxData struct {
	Checked bool
	Title   string
}

// EditMode returns the effective edit mode. A cell with an exception is
// always edited as Normal.
func (c *Cell) EditMode() EditMode {
	if c.HasException() {
		return EditNormal
	}
	return c.editMode
}

// StoredEditMode returns the configured mode regardless of exceptions.
func (c *Cell) StoredEditMode() EditMode { return c.editMode }

// SetEditModeName is SetEditMode by persistent name.
func (c *Cell) SetEditModeName(name string, silent bool) (bool, error) {
	mode, err := ParseEditMode(name)
	if err != nil {
		if silent {
			return false, nil
		}
		return false, &CellError{Address: c.address, Err: err}
	}
	return c.SetEditMode(mode, silent)
}

// SetEditMode switches the edit mode. Unless silent, switching to a data
// mode first checks that the cell's value has the shape the mode expects.
// It reports whether the mode changed.
func (c *Cell) SetEditMode(mode EditMode, silent bool) (bool, error) {
	if !mode.IsValid() {
		if silent {
			return false, nil
		}
		return false, cellErrorf(c.address, "%w: %d", ErrUnknownEditMode, int(mode))
	}
	if mode == c.editMode {
		return false, nil
	}
	if !silent && mode != EditNormal && !mode.IsAutoAlias() {
		if err := c.checkShape(mode); err != nil {
			return false, err
		}
	}

	s := c.owner
	defer s.AtomicChange().Close()
	switch {
	case mode == EditAutoAlias && c.editMode == EditAutoAliasV:
		if sib := s.cells[c.address.Offset(1, 0)]; sib != nil {
			sib.setAliasUnchecked("")
		}
	case mode == EditAutoAliasV && c.editMode == EditAutoAlias:
		if sib := s.cells[c.address.Offset(0, 1)]; sib != nil {
			sib.setAliasUnchecked("")
		}
	}
	c.editMode = mode
	c.applyAutoAlias()
	c.setDirty()
	return true, nil
}

func (c *Cell) shapeError(want string) error {
	return cellErrorf(c.address, "%w: expects the cell to %s", ErrTypeMismatch, want)
}

func (c *Cell) checkShape(mode EditMode) error {
	v, err := c.owner.cellValue(c.address)
	_, isList := expression.AsList(c.expr)
	bound := expression.IsDoubleBinding(c.expr)
	switch mode {
	case EditButton:
		if _, ok := v.(expression.Invocable); !ok || err != nil {
			return c.shapeError("evaluate to a callable")
		}
	case EditColor:
		if _, ok := colorFromValue(v); !ok || err != nil || (!isList && !bound) {
			return c.shapeError("be a tuple of three or four numbers")
		}
	case EditCombo:
		if _, ok := comboData(v); !ok || err != nil || (!isList && !bound) {
			return c.shapeError("be either list(dict, string) or list(list, int)")
		}
	case EditLabel:
		items, _ := v.([]any)
		if !isList || err != nil || len(items) == 0 {
			return c.shapeError("contain a list expression [string...]")
		}
		if _, ok := items[0].(string); !ok {
			return c.shapeError("contain a list expression [string...]")
		}
	case EditQuantity:
		if c.expr == nil {
			return nil
		}
		if err != nil {
			return c.shapeError("contain a constant quantity or list(quantity, dict)")
		}
		if items, ok := v.([]any); ok && isList {
			v = nil
			if len(items) > 0 {
				v = items[0]
			}
		}
		if !expression.IsNumeric(v) {
			return c.shapeError("contain a constant quantity or list(quantity, dict)")
		}
	case EditCheckBox:
	}
	return nil
}

// IsPersistentEditMode reports whether the edit widget stays open. Button,
// CheckBox and Color always do; other data modes only when flagged.
func (c *Cell) IsPersistentEditMode() bool {
	switch c.editMode {
	case EditNormal:
		return false
	case EditButton, EditCheckBox, EditColor:
		return true
	}
	return c.editPersistent
}

// SetPersistentEditMode flags a Combo, Label, Quantity or auto-alias cell
// as persistent. It reports whether anything changed.
func (c *Cell) SetPersistentEditMode(enable bool) bool {
	switch c.editMode {
	case EditNormal, EditButton, EditCheckBox, EditColor:
		return false
	}
	if enable == c.editPersistent {
		return false
	}
	defer c.owner.AtomicChange().Close()
	c.editPersistent = enable
	c.setDirty()
	return true
}

// EditData returns the structured data for the effective edit mode:
// string for Normal and Label, ComboData, QuantityData, CheckBoxData,
// Color, or the button label. With silent, shape errors yield nil.
func (c *Cell) EditData(silent bool) (any, error) {
	d, err := c.editData()
	if err != nil && silent {
		return nil, nil
	}
	return d, err
}

func (c *Cell) editData() (any, error) {
	mode := c.EditMode()
	if mode == EditNormal || mode.IsAutoAlias() {
		return c.StringContent(), nil
	}
	if mode == EditQuantity || mode == EditCheckBox {
		if c.expr == nil {
			return nil, nil
		}
	}
	v, err := c.owner.cellValue(c.address)
	if err != nil {
		return nil, &CellError{Address: c.address, Err: err}
	}
	switch mode {
	case EditButton:
		fn, ok := v.(expression.Invocable)
		if !ok {
			return nil, c.shapeError("evaluate to a callable")
		}
		switch {
		case fn.Doc() != "":
			return fn.Doc(), nil
		case c.alias != "":
			return c.alias, nil
		}
		return c.address.String(), nil
	case EditColor:
		col, ok := colorFromValue(v)
		if !ok {
			return nil, c.shapeError("contain a tuple of three or four numbers")
		}
		return col, nil
	case EditCombo:
		d, ok := comboData(v)
		if !ok {
			return nil, c.shapeError("contain a list expression of [dict|list, string]")
		}
		return d, nil
	case EditLabel:
		if items, ok := v.([]any); ok && len(items) > 0 {
			return displayString(items[0]), nil
		}
		return nil, c.shapeError("be a list expression of [string...]")
	case EditQuantity:
		return c.quantityData(v)
	case EditCheckBox:
		items, ok := v.([]any)
		if !ok {
			return CheckBoxData{Checked: truthy(v)}, nil
		}
		var d CheckBoxData
		if len(items) > 0 {
			d.Checked = truthy(items[0])
		}
		if len(items) > 1 {
			d.Title = displayString(items[1])
		}
		return d, nil
	}
	return nil, nil
}

func comboData(v any) (ComboData, bool) {
	items, ok := v.([]any)
	if !ok || len(items) < 2 {
		return ComboData{}, false
	}
	switch choices := items[0].(type) {
	case map[string]any:
		key, ok := items[1].(string)
		if !ok {
			return ComboData{}, false
		}
		d := ComboData{Key: key}
		for k := range choices {
			d.Items = append(d.Items, k)
		}
		sort.Strings(d.Items)
		return d, true
	case []any:
		q, ok := expression.AsQuantity(items[1])
		if !ok || !q.Unit.IsEmpty() {
			return ComboData{}, false
		}
		d := ComboData{Index: int(q.Value) + 1}
		for _, item := range choices {
			d.Items = append(d.Items, displayString(item))
		}
		return d, true
	}
	return ComboData{}, false
}

func (c *Cell) quantityData(v any) (QuantityData, error) {
	var d QuantityData
	items, isList := v.([]any)
	if _, ok := expression.AsList(c.expr); !ok {
		isList = false
	}
	if isList {
		if len(items) == 0 {
			return d, c.shapeError("contain a constant quantity or list(quantity, dict)")
		}
		v = items[0]
	}
	q, ok := expression.AsQuantity(v)
	if !ok {
		return d, c.shapeError("contain a constant quantity or list(quantity, dict)")
	}
	d.Value = q
	if !c.displayUnit.IsEmpty() {
		d.Unit, d.Scale = c.displayUnit.Text, c.displayUnit.Scale
	}
	if !isList || len(items) < 2 {
		return d, nil
	}
	meta, ok := items[1].(map[string]any)
	if !ok {
		return d, nil
	}
	number := func(key string) *float64 {
		if q, ok := expression.AsQuantity(meta[key]); ok {
			return &q.Value
		}
		return nil
	}
	d.Step, d.Min, d.Max = number("step"), number("min"), number("max")
	if unit, ok := meta["unit"].(string); ok {
		du, err := ParseDisplayUnit(unit)
		if err != nil {
			return d, &CellError{Address: c.address, Err: err}
		}
		d.Unit, d.Scale = du.Text, du.Scale
	}
	return d, nil
}

// DisplayData returns what a viewer shows for the cell: the selected combo
// item, the formatted quantity, nothing for Button, CheckBox and Color
// cells, and the edit data otherwise.
func (c *Cell) DisplayData() any {
	d, _ := c.EditData(true)
	switch c.EditMode() {
	case EditCombo:
		cd, ok := d.(ComboData)
		if !ok {
			return nil
		}
		if cd.Index <= 0 {
			return cd.Key
		}
		if cd.Index > len(cd.Items) {
			return nil
		}
		return cd.Items[cd.Index-1]
	case EditQuantity:
		qd, ok := d.(QuantityData)
		if !ok {
			return nil
		}
		decimals := c.owner.opts.decimals
		if du, err := ParseDisplayUnit(qd.Unit); err == nil && !du.IsEmpty() {
			if qd.Value.Unit.IsEmpty() {
				return qd.Value.Format(decimals) + " " + du.Text
			}
			return du.Format(qd.Value, decimals)
		}
		return qd.Value.Format(decimals)
	case EditButton, EditCheckBox, EditColor:
		return nil
	}
	return d
}

// SetEditData writes structured data back into the cell's expression, or
// through its double binding. It reports whether anything changed.
func (c *Cell) SetEditData(data any) (bool, error) {
	if c.HasException() && c.editMode != EditNormal && !c.editMode.IsAutoAlias() {
		return false, cellErrorf(c.address, "%s", c.exception)
	}
	switch c.editMode {
	case EditButton:
		return c.pressButton()
	case EditCombo:
		return c.setComboData(data)
	case EditLabel:
		return c.setLabelData(data)
	case EditQuantity:
		return c.setQuantityData(data)
	case EditCheckBox:
		return c.setCheckBoxData(data)
	case EditColor:
		return c.setColorData(data)
	}
	text, ok := data.(string)
	if !ok {
		text = displayString(data)
	}
	before := c.StringContent()
	c.SetContent(text, false)
	return c.StringContent() != before, nil
}

func (c *Cell) pressButton() (bool, error) {
	v, err := c.owner.cellValue(c.address)
	fn, ok := v.(expression.Invocable)
	if err != nil || !ok {
		return false, c.shapeError("evaluate to a callable")
	}
	res, err := fn.Call()
	if err != nil {
		return false, &CellError{Address: c.address, Err: err}
	}
	if b, ok := res.(bool); ok {
		return b, nil
	}
	return true, nil
}

func (c *Cell) setComboData(data any) (bool, error) {
	var want ComboData
	switch d := data.(type) {
	case ComboData:
		want = d
	case string:
		want.Key = d
	case int:
		want.Index = d
	default:
		return false, cellErrorf(c.address, "%w: combo data %T", ErrTypeMismatch, data)
	}
	if want.Key == "" && want.Index <= 0 {
		return false, nil
	}
	s := c.owner
	v, _ := s.cellValue(c.address)
	if od, ok := comboData(v); ok {
		var err error
		if want, err = c.comboSelection(want, od, v); err != nil {
			return false, err
		}
		if (od.Index > 0 && od.Index == want.Index) || (od.Key != "" && od.Key == want.Key) {
			return false, nil
		}
	}

	defer s.AtomicChange().Close()
	list, ok := expression.AsList(c.expr)
	if !ok || list.Len() < 2 {
		if b, ok := c.expr.(*expression.BindingExpr); ok {
			if want.Index <= 0 {
				return false, cellErrorf(c.address, "%w: combo item %q needs an index", ErrTypeMismatch, want.Key)
			}
			return true, s.assign(b.Path, float64(want.Index-1))
		}
		return false, c.shapeError("contain a list expression of [dict|list, string]")
	}

	items, _ := v.([]any)
	var oldSel, newSel any
	if len(items) > 1 {
		oldSel = items[1]
	}
	binding, bound := list.Items[0].(*expression.BindingExpr)
	if _, isKey := oldSel.(string); isKey {
		newSel = want.Key
		if bound {
			if err := s.assign(binding.Path, want.Key); err != nil {
				return false, err
			}
		} else if err := c.SetExpression(list.WithItem(1, expression.NewString(want.Key)), PasteFormula); err != nil {
			return false, err
		}
	} else {
		newSel = float64(want.Index - 1)
		if bound {
			if err := s.assign(binding.Path, newSel); err != nil {
				return false, err
			}
		} else if err := c.SetExpression(list.WithItem(1, expression.NewNumber(expression.Quantity{Value: float64(want.Index - 1)})), PasteFormula); err != nil {
			return false, err
		}
	}

	if len(items) > 2 {
		if cb, ok := items[2].(expression.Invocable); ok {
			var container any
			if s.opts.container != nil {
				container = s.opts.container
			}
			if _, err := cb.Call(container, c.address.String(), newSel, oldSel); err != nil {
				return true, &CellError{Address: c.address, Err: err}
			}
		}
	}
	return true, nil
}

// comboSelection fills in the half of want the stored choices select by:
// a key for map choices, a 1-based index for list choices.
func (c *Cell) comboSelection(want ComboData, cur ComboData, v any) (ComboData, error) {
	items, _ := v.([]any)
	switch items[0].(type) {
	case map[string]any:
		if want.Key != "" {
			return want, nil
		}
		if want.Index > len(cur.Items) {
			return want, cellErrorf(c.address, "%w: combo index %d out of range", ErrTypeMismatch, want.Index)
		}
		want.Key = cur.Items[want.Index-1]
	case []any:
		if want.Index > 0 {
			return want, nil
		}
		i := slices.Index(cur.Items, want.Key)
		if i < 0 {
			return want, cellErrorf(c.address, "%w: no combo item %q", ErrTypeMismatch, want.Key)
		}
		want.Index = i + 1
	}
	return want, nil
}

func (c *Cell) setLabelData(data any) (bool, error) {
	text, ok := data.(string)
	if !ok {
		return false, cellErrorf(c.address, "%w: label data %T", ErrTypeMismatch, data)
	}
	if old, _ := c.EditData(true); old == text {
		return false, nil
	}
	list, ok := expression.AsList(c.expr)
	if !ok || list.Len() == 0 {
		return false, c.shapeError("be a list expression of [string...]")
	}
	if b, ok := list.Items[0].(*expression.BindingExpr); ok {
		return true, c.owner.assign(b.Path, text)
	}
	return true, c.SetExpression(list.WithItem(0, expression.NewString(text)), PasteFormula)
}

func (c *Cell) setQuantityData(data any) (bool, error) {
	var q expression.Quantity
	switch d := data.(type) {
	case QuantityData:
		q = d.Value
	default:
		var ok bool
		if q, ok = expression.AsQuantity(data); !ok {
			return false, cellErrorf(c.address, "%w: quantity data %T", ErrTypeMismatch, data)
		}
	}
	if old, err := c.EditData(true); err == nil {
		if od, ok := old.(QuantityData); ok && od.Value == q {
			return false, nil
		}
	}
	return true, c.writeFirst(expression.NewNumber(q), q)
}

func (c *Cell) setCheckBoxData(data any) (bool, error) {
	var checked bool
	switch d := data.(type) {
	case bool:
		checked = d
	case CheckBoxData:
		checked = d.Checked
	default:
		return false, cellErrorf(c.address, "%w: checkbox data %T", ErrTypeMismatch, data)
	}
	if old, _ := c.EditData(true); old != nil {
		if od, ok := old.(CheckBoxData); ok && od.Checked == checked {
			return false, nil
		}
	}
	return true, c.writeFirst(expression.NewBool(checked), checked)
}

// writeFirst replaces a scalar expression, or element 0 of a list, with e.
// Double bindings receive value instead.
func (c *Cell) writeFirst(e expression.Expression, value any) error {
	s := c.owner
	if list, ok := expression.AsList(c.expr); ok && list.Len() > 0 {
		if b, ok := list.Items[0].(*expression.BindingExpr); ok {
			return s.assign(b.Path, value)
		}
		return c.SetExpression(list.WithItem(0, e), PasteFormula)
	}
	if b, ok := c.expr.(*expression.BindingExpr); ok {
		return s.assign(b.Path, value)
	}
	return c.SetExpression(e, PasteFormula)
}

func (c *Cell) setColorData(data any) (bool, error) {
	var col Color
	switch d := data.(type) {
	case Color:
		col = d
	case uint32:
		col = ColorFromPacked(d)
	case string:
		var err error
		if col, err = ParseColor(d); err != nil {
			return false, &CellError{Address: c.address, Err: err}
		}
	default:
		return false, cellErrorf(c.address, "%w: color data %T", ErrTypeMismatch, data)
	}
	value := []any{col.R, col.G, col.B, col.A}
	if b, ok := c.expr.(*expression.BindingExpr); ok {
		return true, c.owner.assign(b.Path, value)
	}
	e, err := expression.FromValue(value)
	if err != nil {
		return false, &CellError{Address: c.address, Err: err}
	}
	return true, c.SetExpression(e, PasteFormula)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if q, ok := expression.AsQuantity(v); ok {
		return q.Value != 0
	}
	return true
}

// FormatValue renders an evaluated cell value for display: numbers and
// quantities in their shortest form, lists and maps with fmt.
func FormatValue(v any) string { return displayString(v) }

func displayString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return expression.Quantity{Value: x}.String()
	case expression.Quantity:
		return x.String()
	}
	return fmt.Sprint(v)
}

package paramsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/paramsheet/expression"
)

func TestEditMode_Names(t *testing.T) {
	for _, m := range EditModes() {
		got, err := ParseEditMode(m.String())
		require.NoError(t, err, m.String())
		assert.Equal(t, m, got)
	}
	_, err := ParseEditMode("Bogus")
	assert.ErrorIs(t, err, ErrUnknownEditMode)
}

func TestEditMode_UnknownName(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "1")

	_, err := c.SetEditModeName("Bogus", false)
	assert.ErrorIs(t, err, ErrUnknownEditMode)

	changed, err := c.SetEditModeName("Bogus", true)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, EditNormal, c.EditMode())
}

func TestEditMode_ShapeMismatch(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "5")

	for _, m := range []EditMode{EditCombo, EditLabel, EditButton, EditColor} {
		_, err := c.SetEditMode(m, false)
		assert.ErrorIs(t, err, ErrTypeMismatch, m.String())
	}
	assert.Equal(t, EditNormal, c.EditMode())

	changed, err := c.SetEditMode(EditCombo, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, EditCombo, c.StoredEditMode())
}

func TestEditData_ComboList(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[["a", "b", "c"], 1]`)
	_, err := c.SetEditMode(EditCombo, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, ComboData{Index: 2, Items: []string{"a", "b", "c"}}, d)
	assert.Equal(t, "b", c.DisplayData())

	changed, err := c.SetEditData(3)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "c", c.DisplayData())

	changed, err = c.SetEditData(3)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEditData_ComboMap(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[{"x": 1, "y": 2}, "x"]`)
	_, err := c.SetEditMode(EditCombo, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, ComboData{Key: "x", Items: []string{"x", "y"}}, d)

	_, err = c.SetEditData("y")
	require.NoError(t, err)
	assert.Equal(t, "y", c.DisplayData())
}

func TestEditData_ComboMapByIndex(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[{"a": 1, "b": 2}, "a"]`)
	_, err := c.SetEditMode(EditCombo, false)
	require.NoError(t, err)

	changed, err := c.SetEditData(2)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `=[{"a": 1, "b": 2}, "b"]`, c.StringContent())
	assert.Equal(t, "b", c.DisplayData())

	changed, err = c.SetEditData(2)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.SetEditData(3)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.False(t, changed)
	assert.Equal(t, `=[{"a": 1, "b": 2}, "b"]`, c.StringContent())
}

func TestEditData_ComboListByKey(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[["a", "b", "c"], 0]`)
	_, err := c.SetEditMode(EditCombo, false)
	require.NoError(t, err)

	changed, err := c.SetEditData("c")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "c", c.DisplayData())

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, 3, d.(ComboData).Index)

	_, err = c.SetEditData("z")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Equal(t, "c", c.DisplayData())
}

func TestEditData_Label(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=["Hello", 1]`)
	_, err := c.SetEditMode(EditLabel, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, "Hello", d)

	changed, err := c.SetEditData("World")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "World", c.DisplayData())
}

func TestEditData_QuantityKeepsMetadata(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[10 mm, {"step": 0.5, "unit": "cm"}]`)
	_, err := c.SetEditMode(EditQuantity, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	qd := d.(QuantityData)
	assert.Equal(t, 10.0, qd.Value.Value)
	assert.Equal(t, "cm", qd.Unit)
	require.NotNil(t, qd.Step)
	assert.Equal(t, 0.5, *qd.Step)
	assert.Equal(t, "1.00 cm", c.DisplayData())

	_, err = c.SetEditData(expression.Quantity{Value: 20, Unit: expression.Unit{Length: 1}})
	require.NoError(t, err)

	d, err = c.EditData(false)
	require.NoError(t, err)
	qd = d.(QuantityData)
	assert.Equal(t, 20.0, qd.Value.Value)
	assert.Equal(t, "cm", qd.Unit)
	require.NotNil(t, qd.Step)
	assert.Equal(t, 0.5, *qd.Step)
	assert.Contains(t, c.StringContent(), `"unit": "cm"`)
}

func TestEditData_QuantityDoubleBinding(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.SetProperty("Box.Length", 5.0))
	s := NewSheet(WithContainer(doc))
	c := setCell(t, s, "A1", "=dbind(Box.Length)")
	setCell(t, s, "A2", "=Box.Length * 2")

	_, err := c.SetEditMode(EditQuantity, false)
	require.NoError(t, err)
	assert.Equal(t, 10.0, valueOf(t, s, "A2"))

	_, err = c.SetEditData(7.0)
	require.NoError(t, err)
	assert.Equal(t, 14.0, valueOf(t, s, "A2"))
	assert.Equal(t, "=dbind(Box.Length)", c.StringContent())
}

func TestEditData_CheckBox(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=true")
	_, err := c.SetEditMode(EditCheckBox, false)
	require.NoError(t, err)
	assert.True(t, c.IsPersistentEditMode())

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, CheckBoxData{Checked: true}, d)
	assert.Nil(t, c.DisplayData())

	changed, err := c.SetEditData(false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "=false", c.StringContent())
}

func TestEditData_Color(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=[1, 0, 0]")
	_, err := c.SetEditMode(EditColor, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, Color{1, 0, 0, 1}, d)

	_, err = c.SetEditData("#00ff00")
	require.NoError(t, err)
	d, err = c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, Color{0, 1, 0, 1}, d)
}

func TestEditData_Button(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "=def press(): /*Press me*/ true")
	assert.Equal(t, "press", c.Alias())

	_, err := c.SetEditMode(EditButton, false)
	require.NoError(t, err)

	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, "Press me", d)

	pressed, err := c.SetEditData(nil)
	require.NoError(t, err)
	assert.True(t, pressed)
}

func TestEditData_ExceptionForcesNormal(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=[Missing, 1]`)
	_, err := c.SetEditMode(EditLabel, true)
	require.NoError(t, err)

	_, err = s.Value(MustParseAddress("A1"))
	require.Error(t, err)

	assert.Equal(t, EditNormal, c.EditMode())
	assert.Equal(t, EditLabel, c.StoredEditMode())
	d, err := c.EditData(false)
	require.NoError(t, err)
	assert.Equal(t, "=[Missing, 1]", d)

	_, err = c.SetEditData("x")
	assert.Error(t, err)
}

func TestEditData_Persistent(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", `=["a", "b"]`)
	assert.False(t, c.SetPersistentEditMode(true), "normal cells cannot be persistent")

	_, err := c.SetEditMode(EditLabel, false)
	require.NoError(t, err)
	assert.False(t, c.IsPersistentEditMode())
	assert.True(t, c.SetPersistentEditMode(true))
	assert.True(t, c.IsPersistentEditMode())
	assert.False(t, c.SetPersistentEditMode(true))
}

func TestEditData_NormalSetsContent(t *testing.T) {
	s := NewSheet()
	c := setCell(t, s, "A1", "1")

	changed, err := c.SetEditData("=2 * 3")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 6.0, valueOf(t, s, "A1"))
}

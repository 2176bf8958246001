package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputs(t *testing.T) {
	err := Validate("Supplier", SupplierInput{Name: "Steel Co", Email: "a@b.c", Phone: "1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Supplier", verr.Model)
	assert.Equal(t,
		"Supplier validation failed: contactPerson: Path `contactPerson` is required., materials: Path `materials` is required.",
		err.Error())

	budget := Amount(0)
	ok := ProjectInput{
		Name:      "Bridge",
		Location:  "Lahore",
		StartDate: &Date{},
		EndDate:   &Date{},
		Budget:    &budget,
	}
	assert.NoError(t, Validate("Project", ok))
}

func TestValidatePatch(t *testing.T) {
	blank := ""
	err := Validate("Project", ProjectPatch{Name: &blank})
	require.Error(t, err)
	assert.Equal(t, "Project validation failed: name: Path `name` is required.", err.Error())

	assert.NoError(t, Validate("Project", ProjectPatch{}))
	assert.NoError(t, Validate("Supplier", SupplierPatch{}))
}

func TestDecodeError(t *testing.T) {
	var in ProjectInput
	err := json.Unmarshal([]byte(`{"location":42}`), &in)
	require.Error(t, err)

	converted := DecodeError("Project", err)
	var verr *ValidationError
	require.ErrorAs(t, converted, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "location", verr.Fields[0].Path)
	assert.Contains(t, converted.Error(), `Project validation failed: location: Cast to String failed for value of type number at path "location"`)

	err = json.Unmarshal([]byte(`{"budget":"x"}`), &in)
	assert.Contains(t, DecodeError("Project", err).Error(), "Project validation failed: Cast to Number failed")

	syntax := errors.New("invalid character '}'")
	assert.Equal(t, syntax, DecodeError("Project", syntax))
}

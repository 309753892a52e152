package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createProductRequest struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Category string  `json:"category" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Status   string  `json:"status" validate:"omitempty,oneof=active discontinued"`
}

func TestValidate_Valid(t *testing.T) {
	req := createProductRequest{Name: "Kettle", Category: "Kitchen", Price: 29.99}
	assert.NoError(t, Validate(req))
}

func TestValidate_MissingRequired(t *testing.T) {
	req := createProductRequest{Price: 10}

	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["Name"])
	assert.Equal(t, "is required", fields["Category"])
}

func TestValidate_OneOf(t *testing.T) {
	req := createProductRequest{Name: "Kettle", Category: "Kitchen", Status: "archived"}

	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestValidate_NegativePrice(t *testing.T) {
	req := createProductRequest{Name: "Kettle", Category: "Kitchen", Price: -1}

	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than or equal to")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"name":"Kettle","category":"Kitchen","price":29.99}`
	r := httptest.NewRequest("POST", "/products", strings.NewReader(body))

	var req createProductRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, "Kettle", req.Name)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/products", strings.NewReader("{not json"))

	var req createProductRequest
	err := DecodeAndValidate(r, &req)
	assert.Error(t, err)
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
)

type lineRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"omitempty,max=10"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(&lineRequest{ProductID: 1, Quantity: 3}))

	err := Struct(&lineRequest{ProductID: 1, Quantity: -2})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Equal(t, "quantity", apperror.FieldOf(err))
	assert.Contains(t, err.Error(), "must be greater than 0")
}

func TestFields(t *testing.T) {
	err := Validator().Struct(&lineRequest{Reason: "a reason that is far too long"})
	fields := Fields(err)

	assert.Equal(t, "required", fields["product_id"])
	assert.Equal(t, "required", fields["quantity"])
	assert.Equal(t, "max", fields["reason"])
}

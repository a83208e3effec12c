package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("failed to create sale line: %w", &InsufficientStockError{ProductID: 7, Available: 2, Requested: 5})

	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, "quantity", FieldOf(wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(wrapped))

	transition := fmt.Errorf("cancel purchase: %w", StateTransition("purchase %d is already received", 3))
	assert.True(t, IsKind(transition, KindStateTransition))
	assert.Equal(t, http.StatusConflict, HTTPStatus(transition))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("product", 1), http.StatusNotFound},
		{"validation", Validation("sale_price", "must not be lower than purchase price"), http.StatusUnprocessableEntity},
		{"return bound", &ReturnQuantityExceededError{ProductID: 1, Allowed: 2, Requested: 3}, http.StatusUnprocessableEntity},
		{"consistency", Consistency("stock drift on product %d", 4), http.StatusInternalServerError},
		{"plain", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessageIncludesField(t *testing.T) {
	err := Validation("due_date", "must not be before the issue date")
	assert.Equal(t, "due_date: must not be before the issue date", err.Error())
	assert.Empty(t, KindOf(nil))
}

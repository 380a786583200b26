package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NotFoundError("channel not found")
	assert.Equal(t, "not_found: channel not found", err.Error())

	wrapped := ExternalError("upstream query failed", assert.AnError)
	assert.Contains(t, wrapped.Error(), "external: upstream query failed")
	assert.ErrorIs(t, wrapped, assert.AnError)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ValidationError("x").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFoundError("x").HTTPStatus())
	assert.Equal(t, http.StatusConflict, ConflictError("x").HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ExternalError("x", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, InternalError("x", nil).HTTPStatus())
}

func TestWithField(t *testing.T) {
	err := ValidationError("missing field").WithField("field", "channel_id")
	assert.Equal(t, "channel_id", err.Context["field"])

	resp := err.ToResponse()
	assert.Equal(t, "missing field", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "channel_id", resp.Context["field"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	structured := ConflictError("already subscribed")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := fmt.Errorf("handler: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := AsStructuredError(assert.AnError)
	assert.Equal(t, TypeInternal, plain.Type)
	assert.ErrorIs(t, plain, assert.AnError)
}

package apperr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "fail", BadRequest("nope").Status())
	assert.Equal(t, "fail", NotFound("gone").Status())
	assert.Equal(t, "error", New(http.StatusInternalServerError, "boom").Status())
	assert.Equal(t, "error", New(http.StatusBadGateway, "upstream").Status())
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err  *Error
		code int
	}{
		{BadRequest("m"), http.StatusBadRequest},
		{Unauthorized("m"), http.StatusUnauthorized},
		{Forbidden("m"), http.StatusForbidden},
		{NotFound("m"), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, "m", tc.err.Error())
		assert.True(t, tc.err.Operational)
	}
}

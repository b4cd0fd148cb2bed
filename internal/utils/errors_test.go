package utils

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Wrapping(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := E(CodeInvalidArgument, "ParsePacket", "invalid json", Wrap(ErrMalformedPacket, cause))

	assert.ErrorIs(t, err, ErrMalformedPacket)
	assert.True(t, IsCode(err, CodeInvalidArgument))
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	assert.Equal(t, "invalid json", SafeMessage(err))
	assert.Equal(t, "ParsePacket: invalid json: malformed packet: unexpected EOF", err.Error())

	assert.Equal(t, ErrMalformedPacket, Wrap(ErrMalformedPacket, nil))
}

func TestCodeOf_PlainErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error", SafeMessage(err))
	assert.False(t, IsCode(err, CodeInternal))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{E(CodeInvalidArgument, "op", "bad", nil), http.StatusBadRequest},
		{E(CodeNotFound, "op", "missing", ErrUnknownPreset), http.StatusNotFound},
		{E(CodeUnavailable, "op", "busy", ErrPoolSaturated), http.StatusServiceUnavailable},
		{E(CodeTimeout, "op", "slow", nil), http.StatusGatewayTimeout},
		{E(CodeInternal, "op", "oops", nil), http.StatusInternalServerError},
		{ErrUnknownPreset, http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

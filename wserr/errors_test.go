package wserr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeTimeout, "connect timeout exceeded")
	assert.Equal(t, "[TIMEOUT] connect timeout exceeded", err.Error())

	wrapped := Wrap(io.ErrUnexpectedEOF, CodeIO, "read failed")
	assert.Equal(t, "[IO_ERROR] read failed: unexpected EOF", wrapped.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrapf(cause, CodeProxyUnreachable, "dial proxy %s", "127.0.0.1:1080")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeProxyUnreachable, GetCode(err))
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeTLSHandshake, "handshake")

	assert.ErrorIs(t, err, ErrTLSHandshake)
	assert.NotErrorIs(t, err, ErrWSHandshake)
}

func TestIsCodeThroughChain(t *testing.T) {
	inner := New(CodeWSHandshake, "bad status 403")
	outer := fmt.Errorf("connect: %w", inner)

	assert.True(t, IsCode(outer, CodeWSHandshake))
	assert.False(t, IsCode(outer, CodeTimeout))
	assert.Equal(t, CodeWSHandshake, GetCode(outer))
}

func TestGetCodeForeignError(t *testing.T) {
	assert.Equal(t, CodeInternal, GetCode(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		code      Code
		retryable bool
	}{
		{CodeProxyUnreachable, true},
		{CodeTimeout, true},
		{CodeIO, true},
		{CodeInvalidURL, false},
		{CodeProxyHandshake, false},
		{CodeTLSHandshake, false},
		{CodeWSHandshake, false},
		{CodeStreamClosed, false},
		{CodeInvalidClose, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(New(tt.code, "x")))
		})
	}
}

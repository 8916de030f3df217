package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

func newHandshake(t *testing.T, secret, runID string) *HandshakeServiceImpl {
	t.Helper()
	h, err := NewHandshakeService(&config.JwtConfig{Secret: secret, TokenTTL: time.Minute}, runID)
	require.NoError(t, err)
	return h
}

func TestHandshake_Disabled(t *testing.T) {
	h := newHandshake(t, "", "run-1")
	assert.False(t, h.Enabled())

	token, err := h.IssueWorkerToken(3)
	require.NoError(t, err)
	assert.Empty(t, token)

	id, err := h.VerifyWorkerToken("anything")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestHandshake_RoundTrip(t *testing.T) {
	h := newHandshake(t, "s3cret", "run-1")
	require.True(t, h.Enabled())

	token, err := h.IssueWorkerToken(4)
	require.NoError(t, err)

	id, err := h.VerifyWorkerToken(token)
	require.NoError(t, err)
	assert.Equal(t, 4, id)
}

func TestHandshake_Rejections(t *testing.T) {
	issuer := newHandshake(t, "s3cret", "run-1")
	token, err := issuer.IssueWorkerToken(1)
	require.NoError(t, err)

	expired := newHandshake(t, "s3cret", "run-1")
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }

	tests := []struct {
		name     string
		verifier *HandshakeServiceImpl
		token    string
	}{
		{name: "other run", verifier: newHandshake(t, "s3cret", "run-2"), token: token},
		{name: "other secret", verifier: newHandshake(t, "different", "run-1"), token: token},
		{name: "expired", verifier: expired, token: token},
		{name: "tampered", verifier: issuer, token: token[:len(token)-2] + "xx"},
		{name: "garbage", verifier: issuer, token: "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.VerifyWorkerToken(tt.token)
			assert.ErrorIs(t, err, errs.ErrInvalidToken)
		})
	}
}

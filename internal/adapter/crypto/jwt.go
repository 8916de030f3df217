package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

var _ primary.HandshakeService = (*HandshakeServiceImpl)(nil)

const handshakeInfo = "steer worker handshake v1"

// WorkerClaims are carried by the token a worker registers with
type WorkerClaims struct {
	WorkerID int    `json:"wid"`
	RunID    string `json:"run"`
	jwt.RegisteredClaims
}

// HandshakeServiceImpl signs worker tokens with an HMAC key derived from
// the shared secret and the run id, so a token never verifies for
// another run. An empty secret disables the check.
type HandshakeServiceImpl struct {
	runID string
	key   []byte
	ttl   time.Duration
	now   func() time.Time
}

func NewHandshakeService(jwtConfig *config.JwtConfig, runID string) (*HandshakeServiceImpl, error) {
	svc := &HandshakeServiceImpl{
		runID: runID,
		ttl:   jwtConfig.TokenTTL,
		now:   time.Now,
	}
	if jwtConfig.Secret == "" {
		return svc, nil
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(jwtConfig.Secret), []byte(runID), []byte(handshakeInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive handshake key: %w", err)
	}
	svc.key = key
	return svc, nil
}

func (h *HandshakeServiceImpl) Enabled() bool {
	return len(h.key) > 0
}

// IssueWorkerToken returns an HS256 token for workerID, or "" when disabled
func (h *HandshakeServiceImpl) IssueWorkerToken(workerID int) (string, error) {
	if !h.Enabled() {
		return "", nil
	}
	now := h.now()
	claims := WorkerClaims{
		WorkerID: workerID,
		RunID:    h.runID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(h.key)
}

// VerifyWorkerToken checks the token and returns the worker id it was issued for
func (h *HandshakeServiceImpl) VerifyWorkerToken(token string) (int, error) {
	if !h.Enabled() {
		return 0, nil
	}
	var claims WorkerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return h.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.RunID != h.runID {
		return 0, errs.ErrInvalidToken
	}
	return claims.WorkerID, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
)

// loginDrift bounds how old a signed login challenge may be.
const loginDrift = 60 * time.Second

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	sigSvc   ports.SignatureService
	tokenSvc ports.TokenService
	now      func() time.Time
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(sigSvc ports.SignatureService, tokenSvc ports.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{sigSvc: sigSvc, tokenSvc: tokenSvc, now: time.Now}
}

// Login verifies a wallet-signed login challenge and returns a JWT token.
func (s *AuthServiceImpl) Login(_ context.Context, req ports.LoginRequest) (string, time.Time, error) {
	if req.Signer.IsZero() {
		return "", time.Time{}, apperror.ErrInvalidSigner()
	}

	drift := s.now().Unix() - req.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(loginDrift.Seconds()) {
		return "", time.Time{}, apperror.ErrTimestampExpired()
	}

	if !s.sigSvc.Verify(req.Signer, LoginPayload(req.Signer, req.Timestamp), req.Signature) {
		return "", time.Time{}, apperror.ErrInvalidSignature()
	}

	token, expiry, err := s.tokenSvc.Generate(req.Signer)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

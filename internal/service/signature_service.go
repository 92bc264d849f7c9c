package service

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Ed25519SignatureService implements ports.SignatureService. Callers sign the
// canonical request string with their wallet key; the base58 signature is
// checked against the claimed signer's public key.
type Ed25519SignatureService struct{}

// NewEd25519SignatureService creates a new signature service.
func NewEd25519SignatureService() *Ed25519SignatureService {
	return &Ed25519SignatureService{}
}

// Verify checks a base58 ed25519 signature of payload by signer.
func (s *Ed25519SignatureService) Verify(signer solana.PublicKey, payload string, signature string) bool {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false
	}
	return sig.Verify(signer, []byte(payload))
}

// BuildCanonicalString constructs the canonical payload for signing.
// Format: METHOD|PATH|TIMESTAMP|NONCE|BODY
func (s *Ed25519SignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}

// LoginPayload is the message a wallet signs to open a read session.
func LoginPayload(signer solana.PublicKey, timestamp int64) string {
	return fmt.Sprintf("login|%s|%d", signer, timestamp)
}

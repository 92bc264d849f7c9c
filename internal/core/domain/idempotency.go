package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// IdempotencyLog stores the response of a fund movement so a retried request
// with the same reference returns the original result.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "owner:operation:reference_id"
	EntryID      uuid.UUID `json:"entry_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format.
func BuildIdempotencyKey(owner solana.PublicKey, op Operation, referenceID string) string {
	return owner.String() + ":" + string(op) + ":" + referenceID
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionInitialize   AuditAction = "INITIALIZE"
	AuditActionDeposit      AuditAction = "DEPOSIT"
	AuditActionWithdraw     AuditAction = "WITHDRAW"
	AuditActionTransfer     AuditAction = "TRANSFER"
	AuditActionConfigure    AuditAction = "CONFIGURE"
	AuditActionAllocation   AuditAction = "ALLOCATION"
	AuditActionTreasury     AuditAction = "TREASURY"
	AuditActionWalletCredit AuditAction = "WALLET_CREDIT"
	AuditActionLogin        AuditAction = "LOGIN"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor,omitempty"` // base58 signer
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

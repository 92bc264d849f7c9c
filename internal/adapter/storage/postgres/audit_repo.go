package postgres

import (
	"context"
	"fmt"

	"auto-savings-vault/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository outside any ledger transaction.
type AuditRepo struct {
	db DBTX
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(db DBTX) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.Actor, string(log.Action), log.ResourceType,
		log.ResourceID, log.Details, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

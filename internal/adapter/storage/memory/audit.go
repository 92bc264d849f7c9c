package memory

import (
	"context"

	"auto-savings-vault/internal/core/domain"
)

// AuditRepo appends audit rows to the store.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates an audit repository over s.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{store: s}
}

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.store.auditMu.Lock()
	defer r.store.auditMu.Unlock()
	r.store.audit = append(r.store.audit, *log)
	return nil
}

// Entries returns a copy of the audit trail.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.store.auditMu.Lock()
	defer r.store.auditMu.Unlock()
	return append([]domain.AuditLog(nil), r.store.audit...)
}

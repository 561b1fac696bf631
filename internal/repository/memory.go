package repository

// In-memory repository set for local development and tests. The guarded
// operations (ConsumeCredit, MarkCaptured) hold the store mutex across the
// whole check-then-act, which gives the same serialization the SQL guards
// give in postgres.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/convertia/backend/internal/domain"
)

// MemoryAccountRepository is a mutex-guarded in-memory AccountRepository.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *MemoryAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryAccountRepository) FindBySubject(ctx context.Context, subject string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Subject == subject {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryAccountRepository) UpdateDisplayName(ctx context.Context, id, displayName, picture string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.DisplayName = displayName
		a.Picture = picture
		a.UpdatedAt = time.Now()
	}
	return nil
}

// MemoryEntitlementRepository is a mutex-guarded in-memory
// EntitlementRepository.
type MemoryEntitlementRepository struct {
	mu           sync.Mutex
	entitlements map[string]*domain.Entitlement
}

func NewMemoryEntitlementRepository() *MemoryEntitlementRepository {
	return &MemoryEntitlementRepository{entitlements: make(map[string]*domain.Entitlement)}
}

func (r *MemoryEntitlementRepository) Create(ctx context.Context, e *domain.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entitlements {
		if existing.SubscriptionRef == e.SubscriptionRef {
			return ErrDuplicateSubscriptionRef
		}
	}
	cp := *e
	r.entitlements[e.ID] = &cp
	return nil
}

func (r *MemoryEntitlementRepository) FindCurrentByAccount(ctx context.Context, accountID string, now time.Time) (*domain.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Entitlement
	for _, e := range r.entitlements {
		if e.AccountID != accountID || !e.PeriodEnd.After(now) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryEntitlementRepository) FindBySubscriptionRef(ctx context.Context, ref string) (*domain.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Entitlement
	for _, e := range r.entitlements {
		if e.SubscriptionRef != ref {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryEntitlementRepository) ConsumeCredit(ctx context.Context, entitlementID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entitlements[entitlementID]
	if !ok {
		return false, nil
	}
	if e.CreditsUsed >= e.CreditsTotal || now.Before(e.PeriodStart) || !e.PeriodEnd.After(now) {
		return false, nil
	}
	e.CreditsUsed++
	e.UpdatedAt = now
	return true, nil
}

// CountByRef reports how many rows carry a subscription reference. Test
// helper for the confirm-once property.
func (r *MemoryEntitlementRepository) CountByRef(ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entitlements {
		if e.SubscriptionRef == ref {
			n++
		}
	}
	return n
}

func (r *MemoryEntitlementRepository) EndPeriod(ctx context.Context, entitlementID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entitlements[entitlementID]; ok && e.PeriodEnd.After(now) {
		e.PeriodEnd = now
		e.UpdatedAt = now
	}
	return nil
}

// MemoryTransactionRepository is a mutex-guarded in-memory
// TransactionRepository.
type MemoryTransactionRepository struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

func (r *MemoryTransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *MemoryTransactionRepository) FindByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Transaction
	for _, t := range r.transactions {
		if t.ExternalRef != externalRef {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryTransactionRepository) MarkCaptured(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.Status != domain.TxStatusCreated {
		return false, nil
	}
	t.Status = domain.TxStatusCaptured
	return true, nil
}

// CountByStatus reports how many rows for a reference carry a status. Test
// helper for the idempotency properties.
func (r *MemoryTransactionRepository) CountByStatus(externalRef, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.transactions {
		if t.ExternalRef == externalRef && t.Status == status {
			n++
		}
	}
	return n
}

// MemoryConversionRepository is a mutex-guarded in-memory
// ConversionRepository.
type MemoryConversionRepository struct {
	mu      sync.Mutex
	records []*domain.ConversionRecord
}

func NewMemoryConversionRepository() *MemoryConversionRepository {
	return &MemoryConversionRepository{}
}

func (r *MemoryConversionRepository) Create(ctx context.Context, c *domain.ConversionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.records = append(r.records, &cp)
	return nil
}

func (r *MemoryConversionRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]*domain.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ConversionRecord
	for _, c := range r.records {
		if c.AccountID != nil && *c.AccountID == accountID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryConversionRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.records {
		if c.AccountID != nil && *c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// All returns a copy of every record. Test helper.
func (r *MemoryConversionRepository) All() []*domain.ConversionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ConversionRecord, 0, len(r.records))
	for _, c := range r.records {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

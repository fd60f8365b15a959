//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock TransactionRepository ----

type MockTransactionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Transaction

	FindSettlementCandidatesFunc func(ctx context.Context, since time.Time, limit int, includePending bool) ([]*model.Transaction, error)
	FindByOrderIDFunc            func(ctx context.Context, orderID string) (*model.Transaction, error)
	UpdateStatusFunc             func(ctx context.Context, id string, status model.Status, rawStatus string, paidAt *time.Time, gatewayResponse map[string]interface{}) error
	CreateFunc                   func(ctx context.Context, t *model.Transaction) error

	StatusUpdates []model.Status
	Created       []*model.Transaction
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{byID: map[string]*model.Transaction{}}
}

func (m *MockTransactionRepo) Put(t *model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
}

func (m *MockTransactionRepo) FindSettlementCandidates(ctx context.Context, since time.Time, limit int, includePending bool) ([]*model.Transaction, error) {
	if m.FindSettlementCandidatesFunc != nil {
		return m.FindSettlementCandidatesFunc(ctx, since, limit, includePending)
	}
	return nil, nil
}

func (m *MockTransactionRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	if m.FindByOrderIDFunc != nil {
		return m.FindByOrderIDFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.ExternalOrderID == orderID {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) UpdateStatus(ctx context.Context, id string, status model.Status, rawStatus string, paidAt *time.Time, gatewayResponse map[string]interface{}) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, rawStatus, paidAt, gatewayResponse)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdates = append(m.StatusUpdates, status)
	t, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	t.RawStatus = rawStatus
	if t.PaidAt == nil {
		t.PaidAt = paidAt
	}
	return nil
}

func (m *MockTransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, t)
	m.byID[t.ID] = t
	return nil
}

// ---- Mock GrantRepository ----

type MockGrantRepo struct {
	mu       sync.Mutex
	grants   []*model.AccessGrant
	packages []*model.Package

	HasActiveGrantForFunc func(ctx context.Context, transactionID string) (bool, error)
	ActivePackagesFunc    func(ctx context.Context) ([]*model.Package, error)
	CreateGrantFunc       func(ctx context.Context, g *model.AccessGrant) error
}

var _ repository.GrantRepository = (*MockGrantRepo)(nil)

func NewMockGrantRepo(packages ...*model.Package) *MockGrantRepo {
	if len(packages) == 0 {
		packages = []*model.Package{
			{ID: "pkg-basic", Name: "Basic Frames", IsActive: true},
			{ID: "pkg-premium", Name: "Premium Frames", IsActive: true},
		}
	}
	return &MockGrantRepo{packages: packages}
}

func (m *MockGrantRepo) Grants() []*model.AccessGrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.AccessGrant(nil), m.grants...)
}

func (m *MockGrantRepo) HasActiveGrantFor(ctx context.Context, transactionID string) (bool, error) {
	if m.HasActiveGrantForFunc != nil {
		return m.HasActiveGrantForFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.grants {
		if g.TransactionID != nil && *g.TransactionID == transactionID && g.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockGrantRepo) ActivePackages(ctx context.Context) ([]*model.Package, error) {
	if m.ActivePackagesFunc != nil {
		return m.ActivePackagesFunc(ctx)
	}
	var out []*model.Package
	for _, p := range m.packages {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockGrantRepo) CreateGrant(ctx context.Context, g *model.AccessGrant) error {
	if m.CreateGrantFunc != nil {
		return m.CreateGrantFunc(ctx, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, g)
	return nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	ByEmail map[string]string

	FindIDByEmailFunc func(ctx context.Context, email string) (string, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) FindIDByEmail(ctx context.Context, email string) (string, error) {
	if m.FindIDByEmailFunc != nil {
		return m.FindIDByEmailFunc(ctx, email)
	}
	if id, ok := m.ByEmail[email]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu    sync.Mutex
	Calls []string

	TransactionStatusFunc func(ctx context.Context, orderID string) (*adapter.StatusResult, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) TransactionStatus(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, orderID)
	m.mu.Unlock()
	if m.TransactionStatusFunc != nil {
		return m.TransactionStatusFunc(ctx, orderID)
	}
	return nil, domain.ErrGatewayMissing
}

// ---- Mock IdentityProvider ----

type MockIdentityProvider struct {
	ByEmail map[string]string

	FindUserIDByEmailFunc func(ctx context.Context, email string) (string, error)
}

var _ adapter.IdentityProvider = (*MockIdentityProvider)(nil)

func (m *MockIdentityProvider) Name() string { return "mock-identity" }

func (m *MockIdentityProvider) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	if m.FindUserIDByEmailFunc != nil {
		return m.FindUserIDByEmailFunc(ctx, email)
	}
	if id, ok := m.ByEmail[email]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

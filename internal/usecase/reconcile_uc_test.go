//go:build !integration

package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/ingest"
	"photobooth-reconcile/internal/usecase"
)

const testUserID = "firebase-uid-user-000001"

type engineDeps struct {
	txs    *MockTransactionRepo
	grants *MockGrantRepo
	users  *MockUserRepo
}

func newEngineDeps() *engineDeps {
	return &engineDeps{
		txs:    NewMockTransactionRepo(),
		grants: NewMockGrantRepo(),
		users:  &MockUserRepo{ByEmail: map[string]string{"user@example.com": testUserID}},
	}
}

func (d *engineDeps) engine(gw adapter.PaymentGateway, opts usecase.Options) *usecase.ReconcileUseCase {
	resolver := usecase.NewIdentityResolver(d.users, nil, newTestLogger())
	return usecase.NewReconcileUseCase(d.txs, d.grants, resolver, gw, opts, newTestLogger())
}

func settledTx(id, orderID string) *model.Transaction {
	paid := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Transaction{
		ID:              id,
		ExternalOrderID: orderID,
		Status:          model.StatusSettled,
		RawStatus:       "settlement",
		GrossAmount:     50000,
		CreatedAt:       paid.Add(-10 * time.Minute),
		PaidAt:          &paid,
		GatewayResponse: map[string]interface{}{"email": "user@example.com"},
	}
}

func sweepOver(d *engineDeps, txs ...*model.Transaction) {
	d.txs.FindSettlementCandidatesFunc = func(ctx context.Context, since time.Time, limit int, includePending bool) ([]*model.Transaction, error) {
		var out []*model.Transaction
		for _, t := range txs {
			if ok, _ := d.grants.HasActiveGrantFor(ctx, t.ID); !ok {
				out = append(out, t)
			}
		}
		return out, nil
	}
}

func TestSweep_GrantsSettledTransaction(t *testing.T) {
	ctx := context.Background()

	// --- Arrange ---
	deps := newEngineDeps()
	tx := settledTx("tx-1", "FRM-1001")
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	uc := deps.engine(nil, usecase.Options{DurationDays: 30})

	// --- Act ---
	report, err := uc.Sweep(ctx, time.Time{}, 100)

	// --- Assert ---
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Granted != 1 || report.Skipped != 0 {
		t.Fatalf("expected granted=1 skipped=0, got granted=%d skipped=%d", report.Granted, report.Skipped)
	}
	grants := deps.grants.Grants()
	if len(grants) != 1 {
		t.Fatalf("expected exactly one grant, got %d", len(grants))
	}
	g := grants[0]
	if g.UserID != testUserID {
		t.Errorf("grant user = %q, want %q", g.UserID, testUserID)
	}
	if g.TransactionID == nil || *g.TransactionID != "tx-1" {
		t.Errorf("grant transaction id = %v, want tx-1", g.TransactionID)
	}
	if !g.StartDate.Equal(*tx.PaidAt) {
		t.Errorf("grant start = %v, want paid time %v", g.StartDate, *tx.PaidAt)
	}
	if want := g.StartDate.AddDate(0, 0, 30); !g.AccessEnd.Equal(want) {
		t.Errorf("grant access end = %v, want %v", g.AccessEnd, want)
	}
	if !g.AccessEnd.After(g.StartDate) {
		t.Error("access end must be strictly after start date")
	}
	if len(g.PackageIDs) == 0 {
		t.Error("grant must carry at least one package")
	}
}

func TestSweep_PendingWithoutConfirmationIsNotPaid(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-2", "FRM-1002")
	tx.Status = model.StatusPending
	tx.RawStatus = "pending"
	tx.PaidAt = nil
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	uc := deps.engine(nil, usecase.Options{})

	report, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.NotPaid != 1 || report.Granted != 0 {
		t.Fatalf("expected not_paid=1 granted=0, got not_paid=%d granted=%d", report.NotPaid, report.Granted)
	}
	if len(deps.grants.Grants()) != 0 {
		t.Error("no grant may be written for an unconfirmed pending transaction")
	}
	if len(deps.txs.StatusUpdates) != 0 {
		t.Error("no status writes expected with confirmation disabled")
	}
}

func TestSweep_PendingConfirmedSettledByGateway(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-3", "FRM-1003")
	tx.Status = model.StatusPending
	tx.RawStatus = "pending"
	tx.PaidAt = nil
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	settledAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	gw := &MockGateway{TransactionStatusFunc: func(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
		return &adapter.StatusResult{
			OrderID:   orderID,
			RawStatus: "settlement",
			PaidAt:    &settledAt,
			Raw:       map[string]interface{}{"transaction_status": "settlement", "email": "user@example.com"},
		}, nil
	}}

	uc := deps.engine(gw, usecase.Options{CheckGateway: true, DurationDays: 30})

	report, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Granted != 1 {
		t.Fatalf("expected granted=1, got %d (summary %s)", report.Granted, report.Summary())
	}
	if tx.Status != model.StatusSettled {
		t.Errorf("transaction status = %s, want settled", tx.Status)
	}
	if tx.PaidAt == nil || !tx.PaidAt.Equal(settledAt) {
		t.Errorf("paid time = %v, want %v", tx.PaidAt, settledAt)
	}
	grants := deps.grants.Grants()
	if len(grants) != 1 || !grants[0].StartDate.Equal(settledAt) {
		t.Fatalf("grant must start at the confirmed settlement time")
	}
}

func TestSweep_GatewayMissingMarksFailed(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-4", "FRM-1004")
	tx.Status = model.StatusPending
	tx.RawStatus = "pending"
	tx.PaidAt = nil
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	gw := &MockGateway{} // defaults to ErrGatewayMissing

	uc := deps.engine(gw, usecase.Options{CheckGateway: true})

	report, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Granted != 0 || report.Skipped != 1 {
		t.Fatalf("expected granted=0 skipped=1, got granted=%d skipped=%d", report.Granted, report.Skipped)
	}
	if tx.Status != model.StatusFailed {
		t.Errorf("transaction status = %s, want failed", tx.Status)
	}
	if tx.RawStatus != model.RawStatusGatewayMissing {
		t.Errorf("raw status = %q, want %q", tx.RawStatus, model.RawStatusGatewayMissing)
	}
}

func TestSweep_GatewayTransientErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-5", "FRM-1005")
	tx.Status = model.StatusPending
	tx.RawStatus = "pending"
	tx.PaidAt = nil
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	gw := &MockGateway{TransactionStatusFunc: func(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
		return nil, domain.ErrGatewayUnavailable
	}}

	uc := deps.engine(gw, usecase.Options{CheckGateway: true})

	report, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Skipped != 1 || report.Granted != 0 {
		t.Fatalf("expected one skip, got %s", report.Summary())
	}
	if tx.Status != model.StatusPending {
		t.Errorf("transient gateway errors must not mutate the transaction, status = %s", tx.Status)
	}
	if len(deps.txs.StatusUpdates) != 0 {
		t.Error("no status writes expected on transient gateway failure")
	}
}

func TestSweep_RerunGrantsNothingNew(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-6", "FRM-1006")
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	uc := deps.engine(nil, usecase.Options{DurationDays: 30})

	first, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Granted != 1 {
		t.Fatalf("first run granted = %d, want 1", first.Granted)
	}
	if second.Granted != 0 {
		t.Fatalf("second run granted = %d, want 0", second.Granted)
	}
	if len(deps.grants.Grants()) != 1 {
		t.Fatalf("re-running must not create additional grants, have %d", len(deps.grants.Grants()))
	}
}

func TestRunBatch_AlreadyGrantedIsSkipped(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-7", "FRM-1001")
	deps.txs.Put(tx)
	txID := tx.ID
	_ = deps.grants.CreateGrant(ctx, &model.AccessGrant{
		ID: "g-1", UserID: testUserID, TransactionID: &txID,
		StartDate: tx.CreatedAt, AccessEnd: tx.CreatedAt.AddDate(0, 0, 30),
		IsActive: true, CreatedAt: tx.CreatedAt,
	})

	uc := deps.engine(nil, usecase.Options{Verbose: true})

	sc := ingest.NewScanner(strings.NewReader("FRM-1001,user@example.com\n"), "FRM-")
	report, err := uc.RunBatch(ctx, sc)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Granted != 0 || report.Skipped != 1 {
		t.Fatalf("expected granted=0 skipped=1, got %s", report.Summary())
	}
	if len(deps.grants.Grants()) != 1 {
		t.Fatal("no duplicate grant may be written")
	}
	decisions := report.Decisions()
	if len(decisions) != 1 || decisions[0].Outcome != usecase.OutcomeAlreadyGranted {
		t.Fatalf("expected a single already_granted decision, got %+v", decisions)
	}
}

func TestRunBatch_BackfillsUnknownOrderFromGateway(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	settledAt := time.Date(2025, 7, 4, 15, 0, 0, 0, time.UTC)
	gw := &MockGateway{TransactionStatusFunc: func(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
		return &adapter.StatusResult{
			OrderID:     orderID,
			RawStatus:   "settlement",
			GrossAmount: 75000,
			PaidAt:      &settledAt,
			Raw:         map[string]interface{}{"transaction_status": "settlement"},
		}, nil
	}}

	uc := deps.engine(gw, usecase.Options{CheckGateway: true, DurationDays: 30})

	sc := ingest.NewScanner(strings.NewReader("FRM-2001,user@example.com\n"), "FRM-")
	report, err := uc.RunBatch(ctx, sc)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.Granted != 1 {
		t.Fatalf("expected granted=1, got %s", report.Summary())
	}
	if len(deps.txs.Created) != 1 {
		t.Fatalf("expected one synthesized transaction, got %d", len(deps.txs.Created))
	}
	created := deps.txs.Created[0]
	if created.ExternalOrderID != "FRM-2001" {
		t.Errorf("synthesized order id = %q", created.ExternalOrderID)
	}
	if created.GatewayResponse["reconcile_origin"] != "gateway_backfill" {
		t.Errorf("synthesized origin = %v, want gateway_backfill", created.GatewayResponse["reconcile_origin"])
	}
	if created.GrossAmount != 75000 {
		t.Errorf("synthesized amount = %d, want 75000", created.GrossAmount)
	}
}

func TestRunBatch_ForceGrantsDespiteGatewayMissing(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	gw := &MockGateway{} // reports missing

	t.Run("without force the candidate is skipped", func(t *testing.T) {
		uc := deps.engine(gw, usecase.Options{CheckGateway: true})
		sc := ingest.NewScanner(strings.NewReader("FRM-3001,user@example.com\n"), "FRM-")
		report, err := uc.RunBatch(ctx, sc)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if report.Granted != 0 || report.Skipped != 1 {
			t.Fatalf("expected a skip, got %s", report.Summary())
		}
	})

	t.Run("with force a compensation transaction is synthesized", func(t *testing.T) {
		uc := deps.engine(gw, usecase.Options{CheckGateway: true, Force: true, DurationDays: 30})
		sc := ingest.NewScanner(strings.NewReader("FRM-3001,user@example.com\n"), "FRM-")
		report, err := uc.RunBatch(ctx, sc)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if report.Granted != 1 {
			t.Fatalf("expected granted=1, got %s", report.Summary())
		}
		if len(deps.txs.Created) != 1 {
			t.Fatalf("expected one synthesized transaction, got %d", len(deps.txs.Created))
		}
		if origin := deps.txs.Created[0].GatewayResponse["reconcile_origin"]; origin != "manual_compensation" {
			t.Errorf("origin = %v, want manual_compensation", origin)
		}
	})
}

func TestSweep_UnresolvableUserIsCounted(t *testing.T) {
	ctx := context.Background()

	deps := newEngineDeps()
	tx := settledTx("tx-8", "FRM-1008")
	tx.GatewayResponse = map[string]interface{}{"email": "stranger@example.com"}
	deps.txs.Put(tx)
	sweepOver(deps, tx)

	uc := deps.engine(nil, usecase.Options{})

	report, err := uc.Sweep(ctx, time.Time{}, 100)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if report.UserNotFound != 1 || report.Granted != 0 {
		t.Fatalf("expected user_not_found=1, got %s", report.Summary())
	}
}

func TestGrant_PackageSelection(t *testing.T) {
	ctx := context.Background()

	catalog := []*model.Package{
		{ID: "pkg-a", Name: "A", IsActive: true},
		{ID: "pkg-b", Name: "B", IsActive: true},
		{ID: "pkg-c", Name: "C", IsActive: true},
	}

	t.Run("allow-list intersected with active packages", func(t *testing.T) {
		deps := newEngineDeps()
		deps.grants = NewMockGrantRepo(catalog...)
		tx := settledTx("tx-9", "FRM-1009")
		deps.txs.Put(tx)
		sweepOver(deps, tx)

		uc := deps.engine(nil, usecase.Options{PackageIDs: []string{"pkg-c", "pkg-missing"}})
		if _, err := uc.Sweep(ctx, time.Time{}, 100); err != nil {
			t.Fatal(err)
		}

		grants := deps.grants.Grants()
		if len(grants) != 1 || len(grants[0].PackageIDs) != 1 || grants[0].PackageIDs[0] != "pkg-c" {
			t.Fatalf("expected [pkg-c], got %+v", grants)
		}
	})

	t.Run("empty intersection falls back to first two active", func(t *testing.T) {
		deps := newEngineDeps()
		deps.grants = NewMockGrantRepo(catalog...)
		tx := settledTx("tx-10", "FRM-1010")
		deps.txs.Put(tx)
		sweepOver(deps, tx)

		uc := deps.engine(nil, usecase.Options{PackageIDs: []string{"pkg-gone"}})
		if _, err := uc.Sweep(ctx, time.Time{}, 100); err != nil {
			t.Fatal(err)
		}

		grants := deps.grants.Grants()
		if len(grants) != 1 {
			t.Fatalf("expected one grant, got %d", len(grants))
		}
		got := grants[0].PackageIDs
		if len(got) != 2 || got[0] != "pkg-a" || got[1] != "pkg-b" {
			t.Fatalf("expected fallback [pkg-a pkg-b], got %v", got)
		}
	})
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/domain/ports/repository"
	"photobooth-reconcile/internal/ingest"
)

// Origin values recorded inside a synthesized transaction's gateway payload
// so backfilled rows stay distinguishable from webhook-created ones.
const (
	originGatewayBackfill    = "gateway_backfill"
	originManualCompensation = "manual_compensation"
)

// Options configures a reconciliation run. Built once at startup from CLI
// flags, config file and environment; the engine never re-reads flags.
type Options struct {
	// CheckGateway enables gateway confirmation for pending candidates.
	CheckGateway bool
	// Force grants from batch input even when the gateway reports the
	// transaction missing. Compensation runs only.
	Force bool
	// DurationDays is the granted access window length. Default 30.
	DurationDays int
	// PackageIDs is the operator allow-list; intersected with active
	// packages. Empty means fall back to the first two active packages.
	PackageIDs []string
	// GatewayTimeout bounds each gateway status call. Default 10s.
	GatewayTimeout time.Duration
	// Verbose records one decision line per candidate.
	Verbose bool
}

// ReconcileUseCase is the reconciliation engine: it confirms ambiguous
// payment status, resolves identity and grants access idempotently, one
// candidate at a time. Every per-candidate failure becomes a counted skip;
// only setup failures escape to the caller.
type ReconcileUseCase struct {
	txs      repository.TransactionRepository
	grants   repository.GrantRepository
	resolver *IdentityResolver
	gateway  adapter.PaymentGateway // nil when confirmation is disabled
	opts     Options
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	txs repository.TransactionRepository,
	grants repository.GrantRepository,
	resolver *IdentityResolver,
	gateway adapter.PaymentGateway,
	opts Options,
	logger *zerolog.Logger,
) *ReconcileUseCase {
	if opts.DurationDays <= 0 {
		opts.DurationDays = 30
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "ReconcileEngine").Logger()
	return &ReconcileUseCase{txs: txs, grants: grants, resolver: resolver, gateway: gateway, opts: opts, log: &l}
}

// Sweep runs the store-sourced backlog sweep: transactions with a
// settlement-like (or pending, when confirmation is enabled) status since
// the cutoff that have no active grant yet, oldest first.
func (u *ReconcileUseCase) Sweep(ctx context.Context, since time.Time, limit int) (*RunReport, error) {
	report := NewRunReport(u.opts.Verbose, u.log)
	includePending := u.opts.CheckGateway && u.gateway != nil
	candidates, err := u.txs.FindSettlementCandidates(ctx, since, limit, includePending)
	if err != nil {
		return nil, err
	}
	u.log.Info().Int("candidates", len(candidates)).Time("since", since).Msg("sweep selected")
	for _, tx := range candidates {
		u.process(ctx, report, tx, emailFromPayload(tx.GatewayResponse))
	}
	report.Emit()
	return report, nil
}

// RunBatch runs the compensation path over parsed (orderId, email)
// candidates. Candidates without a local transaction are backfilled from
// the gateway confirmation response before granting.
func (u *ReconcileUseCase) RunBatch(ctx context.Context, sc *ingest.Scanner) (*RunReport, error) {
	report := NewRunReport(u.opts.Verbose, u.log)
	for sc.Scan() {
		c := sc.Candidate()
		tx, err := u.txs.FindByOrderID(ctx, c.OrderID)
		switch {
		case err == nil:
			u.process(ctx, report, tx, c.Email)
		case errors.Is(err, domain.ErrNotFound):
			u.backfill(ctx, report, c)
		default:
			u.log.Error().Err(err).Str("order_id", c.OrderID).Msg("transaction lookup failed")
			report.Record(c.OrderID, OutcomeLookupFailed, err.Error())
		}
	}
	if n := sc.Malformed(); n > 0 {
		u.log.Warn().Int("lines", n).Msg("malformed input lines ignored")
	}
	report.Emit()
	if err := sc.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// process takes one existing transaction through confirmation, identity
// resolution and granting.
func (u *ReconcileUseCase) process(ctx context.Context, report *RunReport, tx *model.Transaction, email string) {
	status := tx.Status
	if status == model.StatusUnknown || status == "" {
		status = model.NormalizeStatus(tx.RawStatus)
	}

	if status == model.StatusPending && u.opts.CheckGateway && u.gateway != nil {
		res, err := u.confirm(ctx, tx.ExternalOrderID)
		switch {
		case errors.Is(err, domain.ErrGatewayMissing):
			// Authoritative: the gateway never saw this order. Terminal.
			if uerr := u.txs.UpdateStatus(ctx, tx.ID, model.StatusFailed, model.RawStatusGatewayMissing, nil, nil); uerr != nil {
				u.log.Error().Err(uerr).Str("order_id", tx.ExternalOrderID).Msg("failed to mark transaction gateway_missing")
			}
			report.Record(tx.ExternalOrderID, OutcomeGatewayMissing, "gateway reports transaction missing")
			return
		case err != nil:
			// Transient: leave the row untouched, next run retries.
			report.Record(tx.ExternalOrderID, OutcomeGatewayUnavailable, err.Error())
			return
		}

		if next := model.NormalizeStatus(res.RawStatus); next != status {
			if uerr := u.txs.UpdateStatus(ctx, tx.ID, next, res.RawStatus, res.PaidAt, res.Raw); uerr != nil {
				report.Record(tx.ExternalOrderID, OutcomeLookupFailed, "status update failed: "+uerr.Error())
				return
			}
			status = next
			tx.Status = next
			tx.RawStatus = res.RawStatus
			if tx.PaidAt == nil {
				tx.PaidAt = res.PaidAt
			}
		}
		if email == "" {
			email = emailFromPayload(res.Raw)
		}
	}

	if !status.IsPaid() {
		report.Record(tx.ExternalOrderID, OutcomeNotPaid, string(status))
		return
	}

	userID, err := u.resolver.Resolve(ctx, tx.UserID, email)
	if err != nil {
		report.Record(tx.ExternalOrderID, OutcomeUserNotFound, err.Error())
		return
	}

	u.grant(ctx, report, tx, userID)
}

// backfill handles a batch candidate with no local transaction: confirm
// with the gateway (or trust the feed under --force), synthesize the row,
// then grant through the normal path.
func (u *ReconcileUseCase) backfill(ctx context.Context, report *RunReport, c ingest.Candidate) {
	if u.gateway == nil {
		report.Record(c.OrderID, OutcomeNoTransaction, "no local transaction and gateway confirmation disabled")
		return
	}

	origin := originGatewayBackfill
	res, err := u.confirm(ctx, c.OrderID)
	switch {
	case errors.Is(err, domain.ErrGatewayMissing):
		if !u.opts.Force {
			report.Record(c.OrderID, OutcomeGatewayMissing, "gateway reports transaction missing")
			return
		}
		// Operator vouched for the feed; synthesize a settled transaction
		// and keep the origin in the payload as the audit trail.
		origin = originManualCompensation
		res = &adapter.StatusResult{OrderID: c.OrderID, RawStatus: "settlement"}
	case err != nil:
		report.Record(c.OrderID, OutcomeGatewayUnavailable, err.Error())
		return
	}

	status := model.NormalizeStatus(res.RawStatus)
	if !status.IsPaid() {
		report.Record(c.OrderID, OutcomeNotPaid, res.RawStatus)
		return
	}

	payload := res.Raw
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["reconcile_origin"] = origin

	now := time.Now()
	tx := &model.Transaction{
		ID:              uuid.NewString(),
		ExternalOrderID: c.OrderID,
		Status:          status,
		RawStatus:       res.RawStatus,
		GrossAmount:     res.GrossAmount,
		CreatedAt:       now,
		PaidAt:          res.PaidAt,
		GatewayResponse: payload,
	}
	if err := u.txs.Create(ctx, tx); err != nil {
		u.log.Error().Err(err).Str("order_id", c.OrderID).Msg("backfill create failed")
		report.Record(c.OrderID, OutcomeLookupFailed, "backfill create failed: "+err.Error())
		return
	}
	u.log.Info().Str("order_id", c.OrderID).Str("origin", origin).Msg("transaction backfilled")

	userID, err := u.resolver.Resolve(ctx, nil, c.Email)
	if err != nil {
		report.Record(c.OrderID, OutcomeUserNotFound, err.Error())
		return
	}
	u.grant(ctx, report, tx, userID)
}

// grant writes the access grant for a settled transaction unless one
// already exists. The check-then-write pair is safe because runs are
// strictly sequential; a duplicate from a concurrent operator run would
// over-provision, never deny access.
func (u *ReconcileUseCase) grant(ctx context.Context, report *RunReport, tx *model.Transaction, userID string) {
	exists, err := u.grants.HasActiveGrantFor(ctx, tx.ID)
	if err != nil {
		report.Record(tx.ExternalOrderID, OutcomeLookupFailed, "grant lookup failed: "+err.Error())
		return
	}
	if exists {
		report.Record(tx.ExternalOrderID, OutcomeAlreadyGranted, "")
		return
	}

	packageIDs, err := u.pickPackages(ctx)
	if err != nil {
		report.Record(tx.ExternalOrderID, OutcomeLookupFailed, "package catalog lookup failed: "+err.Error())
		return
	}
	if len(packageIDs) == 0 {
		report.Record(tx.ExternalOrderID, OutcomeNoPackages, "no active packages to grant")
		return
	}

	start := tx.EffectiveTime()
	if start.IsZero() {
		start = time.Now()
	}

	g := &model.AccessGrant{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: &tx.ID,
		PackageIDs:    packageIDs,
		StartDate:     start,
		AccessEnd:     start.AddDate(0, 0, u.opts.DurationDays),
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
	if err := u.grants.CreateGrant(ctx, g); err != nil {
		u.log.Error().Err(err).Str("order_id", tx.ExternalOrderID).Str("user_id", userID).Msg("grant write failed")
		report.Record(tx.ExternalOrderID, OutcomeGrantFailed, err.Error())
		return
	}
	report.Record(tx.ExternalOrderID, OutcomeGranted, userID)
}

// pickPackages intersects the operator allow-list with active packages,
// falling back to the first two active packages in catalog order. The
// fallback mirrors long-standing checkout behavior; it is logged so product
// can spot runs that relied on it.
func (u *ReconcileUseCase) pickPackages(ctx context.Context) ([]string, error) {
	active, err := u.grants.ActivePackages(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	if len(u.opts.PackageIDs) > 0 {
		allowed := make(map[string]bool, len(u.opts.PackageIDs))
		for _, id := range u.opts.PackageIDs {
			allowed[strings.TrimSpace(id)] = true
		}
		var out []string
		for _, p := range active {
			if allowed[p.ID] {
				out = append(out, p.ID)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
		u.log.Warn().Strs("allow_list", u.opts.PackageIDs).Msg("package allow-list matched nothing active; falling back to first two active packages")
	}

	n := 2
	if len(active) < n {
		n = len(active)
	}
	out := make([]string, 0, n)
	for _, p := range active[:n] {
		out = append(out, p.ID)
	}
	return out, nil
}

// confirm queries the gateway with the configured per-call timeout.
func (u *ReconcileUseCase) confirm(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
	cctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	return u.gateway.TransactionStatus(cctx, orderID)
}

// emailFromPayload digs a customer email out of a stored gateway payload.
// Key aliases vary between webhook versions, so all known spellings are
// tried here and nowhere else.
func emailFromPayload(payload map[string]interface{}) string {
	if payload == nil {
		return ""
	}
	for _, key := range []string{"email", "customer_email", "customerEmail", "user_email"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	for _, key := range []string{"customer_details", "customer"} {
		if nested, ok := payload[key].(map[string]interface{}); ok {
			if v, ok := nested["email"].(string); ok && v != "" {
				return strings.ToLower(strings.TrimSpace(v))
			}
		}
	}
	return ""
}

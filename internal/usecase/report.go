package usecase

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Outcome is the per-candidate reason code recorded by a run.
type Outcome string

const (
	OutcomeGranted            Outcome = "granted"
	OutcomeAlreadyGranted     Outcome = "already_granted"
	OutcomeNotPaid            Outcome = "not_paid"
	OutcomeUserNotFound       Outcome = "user_not_found"
	OutcomeGatewayMissing     Outcome = "gateway_missing"
	OutcomeGatewayUnavailable Outcome = "gateway_unavailable"
	OutcomeNoTransaction      Outcome = "no_transaction"
	OutcomeNoPackages         Outcome = "no_packages"
	OutcomeLookupFailed       Outcome = "lookup_failed"
	OutcomeGrantFailed        Outcome = "grant_failed"
)

// Decision is one verbose per-candidate log entry.
type Decision struct {
	OrderID string
	Outcome Outcome
	Detail  string
}

// RunReport accumulates the counters of a single reconciliation run. The
// printed summary (plus the process exit code) is the whole contract
// calling automation depends on.
type RunReport struct {
	Total        int
	Granted      int
	Skipped      int
	UserNotFound int
	NotPaid      int

	verbose   bool
	decisions []Decision
	log       *zerolog.Logger
}

func NewRunReport(verbose bool, logger *zerolog.Logger) *RunReport {
	return &RunReport{verbose: verbose, log: logger}
}

// Record counts one candidate decision. Everything that is not a grant is a
// skip; user_not_found and not_paid additionally feed their own counters.
func (r *RunReport) Record(orderID string, outcome Outcome, detail string) {
	r.Total++
	switch outcome {
	case OutcomeGranted:
		r.Granted++
	case OutcomeUserNotFound:
		r.Skipped++
		r.UserNotFound++
	case OutcomeNotPaid:
		r.Skipped++
		r.NotPaid++
	default:
		r.Skipped++
	}
	if r.verbose {
		r.decisions = append(r.decisions, Decision{OrderID: orderID, Outcome: outcome, Detail: detail})
		if r.log != nil {
			r.log.Info().
				Str("order_id", orderID).
				Str("outcome", string(outcome)).
				Str("detail", detail).
				Msg("candidate decided")
		}
	}
}

// Decisions returns the verbose decision log (empty unless verbose).
func (r *RunReport) Decisions() []Decision { return r.decisions }

// Summary renders the single-line run result.
func (r *RunReport) Summary() string {
	return fmt.Sprintf("total=%d granted=%d skipped=%d user_not_found=%d not_paid=%d",
		r.Total, r.Granted, r.Skipped, r.UserNotFound, r.NotPaid)
}

// Emit writes the final summary through the logger.
func (r *RunReport) Emit() {
	if r.log == nil {
		return
	}
	r.log.Info().
		Int("total", r.Total).
		Int("granted", r.Granted).
		Int("skipped", r.Skipped).
		Int("user_not_found", r.UserNotFound).
		Int("not_paid", r.NotPaid).
		Msg("reconciliation run finished")
}

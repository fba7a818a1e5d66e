package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/observability"
)

// ReconciliationService sweeps wallet totals against the ledger. Drift is
// logged and counted, never auto-corrected: an operator decides the fix.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// DriftReport describes one divergence found during a sweep.
type DriftReport struct {
	ChamaID  uuid.UUID
	Kind     string
	Expected int64
	Actual   int64
}

// Run checks every active chama's recorded total savings against the sum of
// its members' savings balances and prunes expired idempotency records.
func (s *ReconciliationService) Run(ctx context.Context) ([]DriftReport, error) {
	q := s.store.Queries()

	chamaIDs, err := q.ListActiveChamaIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chamas for reconciliation: %w", err)
	}

	var drifts []DriftReport
	for _, id := range chamaIDs {
		chama, err := q.GetChama(ctx, id)
		if err != nil {
			return drifts, fmt.Errorf("load chama %s: %w", id, err)
		}
		memberSavings, _, err := q.SumMemberBalances(ctx, id)
		if err != nil {
			return drifts, err
		}

		if chama.TotalSavings != memberSavings {
			drift := DriftReport{
				ChamaID:  id,
				Kind:     "chama_savings",
				Expected: chama.TotalSavings,
				Actual:   memberSavings,
			}
			drifts = append(drifts, drift)
			observability.IncrementReconciliationDrift(drift.Kind)
			zap.L().Warn("reconciliation drift detected",
				zap.String("chama_id", id.String()),
				zap.String("kind", drift.Kind),
				zap.Int64("recorded_total", drift.Expected),
				zap.Int64("member_sum", drift.Actual))
		}

		// Gateway contributions land in the total on finalize; manually
		// verified ones add on top. The ledger sum exceeding the total means a
		// finalize credited the ledger without crediting the chama.
		ledgerContributions, err := q.SumSuccessfulByChamaPurpose(ctx, id, domain.PurposeContribution)
		if err != nil {
			return drifts, err
		}
		if ledgerContributions > chama.TotalSavings {
			drift := DriftReport{
				ChamaID:  id,
				Kind:     "ledger_contributions",
				Expected: chama.TotalSavings,
				Actual:   ledgerContributions,
			}
			drifts = append(drifts, drift)
			observability.IncrementReconciliationDrift(drift.Kind)
			zap.L().Warn("reconciliation drift detected",
				zap.String("chama_id", id.String()),
				zap.String("kind", drift.Kind),
				zap.Int64("recorded_total", drift.Expected),
				zap.Int64("ledger_sum", drift.Actual))
		}
	}

	pruned, err := q.DeleteExpiredIdempotencyRecords(ctx, time.Now().UTC())
	if err != nil {
		return drifts, err
	}
	if pruned > 0 {
		zap.L().Info("pruned expired idempotency records", zap.Int64("count", pruned))
	}

	return drifts, nil
}

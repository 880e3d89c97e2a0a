package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"skumatch/internal"
	"skumatch/internal/match"
	"skumatch/internal/storage"
)

// LineMatcher is what the pipeline needs from the matching engine.
type LineMatcher interface {
	Match(ctx context.Context, item internal.ExtractedLineItem, scope *match.OrderScope) internal.MatchResult
}

type ProcessingService struct {
	db      *storage.DB
	matcher LineMatcher
	log     *zap.SugaredLogger
}

func NewProcessingService(db *storage.DB, matcher LineMatcher, log *zap.SugaredLogger) *ProcessingService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ProcessingService{db: db, matcher: matcher, log: log}
}

type ProcessResult struct {
	OrderID   int
	TraceID   string
	Processed int
	Matched   int
	Review    int
}

// ProcessOrder matches all line items of one order and persists the
// results. Re-running the same reference clears the previous results
// first. Duplicate prevention is scoped to the order: each catalog row is
// handed out at most once across its lines.
func (s *ProcessingService) ProcessOrder(ctx context.Context, reference string, items []internal.ExtractedLineItem) (ProcessResult, error) {
	if len(items) == 0 {
		return ProcessResult{}, eris.New("order has no line items")
	}

	traceID := uuid.NewString()
	log := s.log.With("traceId", traceID, "reference", reference)
	started := time.Now()

	order, err := s.db.UpsertOrder(reference)
	if err != nil {
		return ProcessResult{}, eris.Wrap(err, "upsert order")
	}
	if err := s.db.ClearOrderProcessing(order.ID); err != nil {
		return ProcessResult{}, eris.Wrap(err, "clear previous results")
	}

	scope := match.NewOrderScope()
	counts := map[string]int{}
	result := ProcessResult{OrderID: order.ID, TraceID: traceID}

	matchStarted := time.Now()
	for _, item := range items {
		lineItemID, err := s.db.InsertLineItem(order.ID, item)
		if err != nil {
			return ProcessResult{}, eris.Wrapf(err, "insert line %d", item.LineNo)
		}

		res := s.matcher.Match(ctx, item, scope)
		if err := s.db.InsertMatch(lineItemID, res); err != nil {
			return ProcessResult{}, eris.Wrapf(err, "insert match for line %d", item.LineNo)
		}

		counts[string(res.Method)]++
		result.Processed++
		if res.Match != nil {
			result.Matched++
		}
		if res.RequiresReview {
			result.Review++
		}
	}
	matchSeconds := time.Since(matchStarted).Seconds()

	status := "matched"
	if result.Review > 0 {
		status = "needs_review"
	}
	if err := s.db.UpdateOrderStatus(order.ID, status); err != nil {
		return ProcessResult{}, eris.Wrap(err, "update order status")
	}

	timings := map[string]float64{
		"match_s": matchSeconds,
		"total_s": time.Since(started).Seconds(),
	}
	if err := s.db.InsertRun(traceID, order.ID, timings, counts); err != nil {
		log.Warnw("run not recorded", "err", err)
	}

	log.Infow("order processed",
		"orderId", order.ID,
		"lines", result.Processed,
		"matched", result.Matched,
		"review", result.Review,
		"status", status,
	)
	return result, nil
}

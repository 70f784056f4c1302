package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/ledger"
	"genstudio/internal/logging"
	"genstudio/internal/queue"
	"genstudio/internal/ratelimit"
)

// QueueSubmitter debits the ledger and queues descriptors.
type QueueSubmitter struct {
	queue   queue.Queue[Descriptor]
	ledger  ledger.Ledger
	limiter ratelimit.Limiter
	limit   int
	logger  *logging.Logger
}

// NewQueueSubmitter creates a submitter. limiter may be nil; limit is the
// number of submissions allowed per user and window (<= 0 is unlimited).
func NewQueueSubmitter(q queue.Queue[Descriptor], l ledger.Ledger, limiter ratelimit.Limiter, limit int) *QueueSubmitter {
	if l == nil {
		l = ledger.NewNoopLedger()
	}
	if limiter == nil {
		limiter = ratelimit.NewNoopLimiter()
	}
	return &QueueSubmitter{
		queue:   q,
		ledger:  l,
		limiter: limiter,
		limit:   limit,
		logger:  logging.NewLogger("jobs"),
	}
}

// Submit charges the total cost once and queues every descriptor. When
// queueing fails part way the cost of the descriptors left out is refunded
// and the receipt lists the jobs that were queued.
func (s *QueueSubmitter) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if len(sub.Descriptors) == 0 {
		return Receipt{}, ErrEmptySubmission
	}
	if sub.UserID == "" {
		return Receipt{}, fmt.Errorf("submission has no user")
	}

	allowed, _, resetAt, err := s.limiter.AllowWithDetails(ctx, sub.UserID, s.limit)
	if err != nil {
		// The limiter is advisory; a Redis hiccup must not block generation.
		s.logger.Warn("rate limit check failed", "user", sub.UserID, "error", err)
	} else if !allowed {
		return Receipt{}, fmt.Errorf("%w (resets at %s)", ErrRateLimited, resetAt.Format(time.RFC3339))
	}

	receipt := Receipt{SubmissionID: uuid.NewString(), JobIDs: []string{}}
	now := time.Now().UTC()
	for i := range sub.Descriptors {
		d := &sub.Descriptors[i]
		d.ID = uuid.NewString()
		d.SubmissionID = receipt.SubmissionID
		d.UserID = sub.UserID
		d.CreatedAt = now
	}

	total := sub.TotalCost()
	balance, err := s.ledger.Debit(ctx, sub.UserID, total, receipt.SubmissionID)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to charge submission: %w", err)
	}
	receipt.Charged = total
	receipt.Balance = balance

	for i, d := range sub.Descriptors {
		if err := s.queue.Enqueue(ctx, d); err != nil {
			refund := Submission{Descriptors: sub.Descriptors[i:]}.TotalCost()
			s.refund(ctx, sub.UserID, receipt.SubmissionID, refund, &receipt)
			s.logger.Error("failed to queue job", "submission", receipt.SubmissionID, "job", d.ID, "error", err)
			return receipt, fmt.Errorf("failed to queue job %d of %d: %w", i+1, len(sub.Descriptors), err)
		}
		receipt.JobIDs = append(receipt.JobIDs, d.ID)
	}

	s.logger.Info("submission queued", "submission", receipt.SubmissionID, "user", sub.UserID,
		"jobs", len(receipt.JobIDs), "charged", total)
	return receipt, nil
}

func (s *QueueSubmitter) refund(ctx context.Context, userID, submissionID string, amount float64, receipt *Receipt) {
	if amount <= 0 {
		return
	}
	// Detached so a cancelled request still gets its refund.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	balance, err := s.ledger.Credit(ctx, userID, amount, "refund:"+submissionID)
	if err != nil {
		s.logger.Error("refund failed", "submission", submissionID, "user", userID, "amount", amount, "error", err)
		return
	}
	receipt.Charged -= amount
	receipt.Balance = balance
}

// IsInsufficientCredits reports whether err came from an overdrawn ledger.
func IsInsufficientCredits(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientCredits)
}

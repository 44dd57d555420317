package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

// DocumentStatusReader is the narrow read surface the poller needs.
type DocumentStatusReader interface {
	GetByID(ctx context.Context, id string) (*domain.DeliveryDocument, error)
}

// RecognitionPoller waits for a document to leave the processing state. It
// is an explicit loop with an attempt counter and a single exit per outcome:
// terminal document, context cancellation, or attempt budget exhausted. No
// timers survive a return.
type RecognitionPoller struct {
	docs        DocumentStatusReader
	interval    time.Duration
	maxAttempts int
}

func NewRecognitionPoller(docs DocumentStatusReader, interval time.Duration, maxAttempts int) *RecognitionPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	return &RecognitionPoller{docs: docs, interval: interval, maxAttempts: maxAttempts}
}

// Wait polls until the document reaches completed or failed, the context is
// cancelled, or the attempt budget runs out. Exhausting the budget returns
// ErrTimeout: the document may still resolve later and stays queryable, so
// a timeout is deliberately distinct from a failed recognition. Transport
// errors consume an attempt and are retried within the same budget.
func (p *RecognitionPoller) Wait(ctx context.Context, documentID string) (*domain.DeliveryDocument, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := p.docs.GetByID(ctx, documentID)
		if err != nil {
			lastErr = err
		} else if doc.Status.Terminal() {
			return doc, nil
		}

		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return nil, domain.WrapError(domain.ErrTimeout, "poll recognition status",
			fmt.Errorf("%d attempts exhausted, last error: %w", p.maxAttempts, lastErr))
	}
	return nil, domain.WrapError(domain.ErrTimeout, "poll recognition status",
		fmt.Errorf("document still processing after %d attempts: %w", p.maxAttempts, errors.New("budget exhausted")))
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrNotFound              = errors.New("document not found")
	ErrInvalidID             = errors.New("invalid object id")
	ErrInvalidMessage        = errors.New("invalid message: message cannot be nil")
	ErrInvalidConversationID = errors.New("invalid conversation ID: cannot be empty")
	ErrOperationTimeout      = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

// ParseID converts a hex conversation/message id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, ErrInvalidConversationID
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// maxRetries is reached.
func withRetry(ctx context.Context, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return err
			}
			logger.Warn("retrying mongo operation",
				zap.String("operation", op),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries),
			)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}
	return translateError(lastErr)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrOperationTimeout, err)
	default:
		return err
	}
}

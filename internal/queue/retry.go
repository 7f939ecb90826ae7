package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/bus"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
)

// ScheduleRetry adds payload to the retry sorted set with score
// now + BASE_DELAY*2^retryCount (spec.md §4.7): 5s, 10s, 20s for
// retryCount 0, 1, 2 at the default BaseDelay of 5s.
func ScheduleRetry(ctx context.Context, b bus.Bus, retryKey string, payload []byte, retryCount int, baseDelay time.Duration, cause error) error {
	delay := baseDelay * (1 << retryCount)
	retryAt := time.Now().Add(delay).UnixMilli()

	entry := domain.RetryEntry{
		Payload: payload,
		RetryAt: retryAt,
		Error:   cause.Error(),
	}
	member, err := json.Marshal(entry)
	if err != nil {
		return apperrors.ParseErr("marshal retry entry", err)
	}
	if err := b.ZAdd(ctx, retryKey, float64(retryAt), member); err != nil {
		return apperrors.DBErr("zadd retry entry", err)
	}
	return nil
}

// DeadLetter appends payload with dead-letter metadata to deadLetterKey.
func DeadLetter(ctx context.Context, b bus.Bus, deadLetterKey string, payload []byte, retryCount int, date string, cause error) error {
	entry := domain.DeadLetterEntry{
		Payload:    payload,
		Error:      cause.Error(),
		RetryCount: retryCount,
		Date:       date,
		Timestamp:  time.Now().UnixMilli(),
	}
	member, err := json.Marshal(entry)
	if err != nil {
		return apperrors.ParseErr("marshal dead-letter entry", err)
	}
	if err := b.RPush(ctx, deadLetterKey, member); err != nil {
		return apperrors.DBErr("rpush dead-letter entry", err)
	}
	return nil
}

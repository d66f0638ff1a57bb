package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bstardust/memorable/pkg/common"
)

func fast() Config {
	cfg := Default()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.MaxRetries = 3
	return cfg
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fast(), func(context.Context) error {
		calls++
		if calls < 3 {
			return common.NewNetworkError("fetch", errors.New("connection refused"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentErrors(t *testing.T) {
	for _, perm := range []error{
		Permanent(errors.New("connection refused")),
		common.NewValidationError("op", "bad"),
		context.Canceled,
	} {
		calls := 0
		err := Do(context.Background(), "op", fast(), func(context.Context) error {
			calls++
			return perm
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls, "%v", perm)
	}
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("SlowDown: please reduce your request rate")
	err := Do(context.Background(), "upload", fast(), func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fast()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	calls := 0
	err := Do(ctx, "op", cfg, func(context.Context) error {
		calls++
		cancel()
		return fmt.Errorf("network down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := Default()
	assert.LessOrEqual(t, backoffDuration(20, cfg), cfg.MaxBackoff)
	d := backoffDuration(0, cfg)
	assert.GreaterOrEqual(t, d, 800*time.Millisecond)
	assert.LessOrEqual(t, d, 1200*time.Millisecond)
}

func TestWithMaxRetries(t *testing.T) {
	assert.Equal(t, 0, Default().WithMaxRetries(-3).MaxRetries)
	assert.Equal(t, 2, Default().WithMaxRetries(2).MaxRetries)
}

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrends/internal/logger"
)

func TestHourly_Next(t *testing.T) {
	h := Hourly{Minute: 10, Second: 0}
	utc := time.UTC

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before offset", time.Date(2026, 10, 18, 9, 5, 0, 0, utc), time.Date(2026, 10, 18, 9, 10, 0, 0, utc)},
		{"exactly on offset", time.Date(2026, 10, 18, 9, 10, 0, 0, utc), time.Date(2026, 10, 18, 10, 10, 0, 0, utc)},
		{"after offset", time.Date(2026, 10, 18, 9, 10, 0, 1, utc), time.Date(2026, 10, 18, 10, 10, 0, 0, utc)},
		{"day rollover", time.Date(2026, 10, 18, 23, 30, 0, 0, utc), time.Date(2026, 10, 19, 0, 10, 0, 0, utc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Next(tt.now))
		})
	}
}

func TestHourly_NextHalfHourZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*60*60+30*60)
	h := Hourly{Minute: 10}

	got := h.Next(time.Date(2026, 10, 18, 9, 20, 0, 0, ist))
	assert.Equal(t, time.Date(2026, 10, 18, 10, 10, 0, 0, ist), got)
}

func TestHourly_ValidateAndString(t *testing.T) {
	assert.NoError(t, Hourly{Minute: 10}.Validate())
	assert.ErrorIs(t, Hourly{Minute: 60}.Validate(), ErrInvalidSchedule)
	assert.ErrorIs(t, Hourly{Second: -1}.Validate(), ErrInvalidSchedule)
	assert.Equal(t, "0 10 * * * *", Hourly{Minute: 10}.String())
}

func TestScheduler_RunOnStartAndTicks(t *testing.T) {
	var buf bytes.Buffer

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s := New(Hourly{Minute: 10}, Options{RunOnStart: true, PastDue: time.Minute}, logger.New("debug", "text", &buf))
	s.now = func() time.Time { return base }

	var (
		mu     sync.Mutex
		fires  int
		ticks  = make(chan time.Time, 2)
		waited []time.Duration
	)

	// first tick on time, second one five minutes late
	ticks <- time.Date(2026, 10, 18, 9, 10, 0, 0, time.UTC)
	ticks <- time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC)

	s.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		waited = append(waited, d)
		mu.Unlock()

		return ticks
	}

	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(context.Context) error {
		fires++
		if fires == 3 {
			cancel()
			return errors.New("boom")
		}

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, fires, "startup run plus two ticks")
	assert.Equal(t, 10*time.Minute, waited[0])
	assert.Contains(t, buf.String(), "the timer is past due")
	assert.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "scheduler stopped")
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(Hourly{Minute: 99}, Options{}, nil)

	err := s.Run(context.Background(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

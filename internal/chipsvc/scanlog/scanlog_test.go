package scanlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

type memSink struct {
	mu     sync.Mutex
	events []models.ScanEvent
}

func (m *memSink) Append(_ context.Context, ev models.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memSink) all() []models.ScanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ScanEvent(nil), m.events...)
}

func TestRecordAppendsToEverySink(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	l := NewLogger(time.Second, a, b)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	owner := "u-1"
	ev := l.Record(context.Background(), "chip-1", &owner, Request{
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) Mobile/15E148",
	})
	l.Wait()

	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	got := a.all()[0]
	assert.Equal(t, ev, got)
	assert.Equal(t, "chip-1", got.ChipID)
	assert.Equal(t, "Tablet", got.Device)
	assert.Equal(t, fixed, got.ScannedAt)
	assert.NotEmpty(t, got.ID)
}

func TestRecordSurvivesFailingSinks(t *testing.T) {
	good := &memSink{}
	failing := SinkFunc(func(context.Context, models.ScanEvent) error { return errors.New("sink down") })
	panicking := SinkFunc(func(context.Context, models.ScanEvent) error { panic("boom") })

	l := NewLogger(time.Second, failing, panicking, good)
	assert.NotPanics(t, func() {
		l.Record(context.Background(), "chip-1", nil, Request{})
		l.Wait()
	})
	assert.Len(t, good.all(), 1)
}

func TestRecordIgnoresCallerCancellation(t *testing.T) {
	var gotErr error
	done := make(chan struct{})
	sink := SinkFunc(func(ctx context.Context, _ models.ScanEvent) error {
		defer close(done)
		gotErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	l := NewLogger(time.Second, sink)
	l.Record(ctx, "chip-1", nil, Request{})
	cancel()
	l.Wait()

	<-done
	assert.NoError(t, gotErr)
}

func TestRecordDoesNotWaitForSlowSink(t *testing.T) {
	release := make(chan struct{})
	sink := SinkFunc(func(context.Context, models.ScanEvent) error {
		<-release
		return nil
	})
	l := NewLogger(time.Second, sink)

	returned := make(chan struct{})
	go func() {
		l.Record(context.Background(), "chip-1", nil, Request{})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on the sink")
	}
	close(release)
	l.Wait()
}

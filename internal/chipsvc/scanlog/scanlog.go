// Package scanlog records tap events without ever failing the tap itself.
package scanlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/device"
	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

// Sink is an append-only destination for scan events.
type Sink interface {
	Append(ctx context.Context, ev models.ScanEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev models.ScanEvent) error

func (f SinkFunc) Append(ctx context.Context, ev models.ScanEvent) error { return f(ctx, ev) }

// Request carries the requester details captured with each tap.
type Request struct {
	IP        string
	UserAgent string
}

type Logger struct {
	sinks   []Sink
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewLogger(timeout time.Duration, sinks ...Sink) *Logger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Logger{sinks: sinks, timeout: timeout, now: time.Now}
}

// Record builds the event and issues one append per sink before returning.
// Appends complete in the background and are not awaited; failures are
// logged and dropped.
func (l *Logger) Record(ctx context.Context, chipID string, ownerID *string, req Request) models.ScanEvent {
	ev := models.ScanEvent{
		ID:        uuid.New().String(),
		ChipID:    chipID,
		OwnerID:   ownerID,
		ScannedAt: l.now().UTC(),
		Device:    string(device.Classify(req.UserAgent)),
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}

	// the tap response must not cancel the write
	base := context.WithoutCancel(ctx)
	for _, sink := range l.sinks {
		l.wg.Add(1)
		go l.append(base, sink, ev)
	}
	return ev
}

func (l *Logger) append(ctx context.Context, sink Sink, ev models.ScanEvent) {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			l.fail(ev, sink, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sink.Append(ctx, ev); err != nil {
		l.fail(ev, sink, err)
	}
}

func (l *Logger) fail(ev models.ScanEvent, sink Sink, err error) {
	log.WithFields(log.Fields{
		"chip_id": ev.ChipID,
		"scan_id": ev.ID,
		"sink":    fmt.Sprintf("%T", sink),
	}).Warnf("scan log append failed: %v", err)
}

// Wait blocks until every issued append has finished. Used on shutdown and
// in tests.
func (l *Logger) Wait() {
	l.wg.Wait()
}

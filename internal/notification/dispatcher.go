package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FailureRecorder counts failed deliveries.
type FailureRecorder interface {
	NotificationFailed(template string)
}

// Dispatcher sends emails in the background. Each send gets its own context
// so it outlives the request that triggered it.
type Dispatcher struct {
	sender   Sender
	timeout  time.Duration
	recorder FailureRecorder
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(sender Sender, timeout time.Duration, recorder FailureRecorder, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, recorder: recorder, logger: logger}
}

// Dispatch queues an email and returns immediately.
func (d *Dispatcher) Dispatch(template Template, recipient string, data map[string]string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.fail(template, recipient, zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.SendEmail(ctx, template, recipient, data); err != nil {
			d.fail(template, recipient, zap.Error(err))
		}
	}()
}

func (d *Dispatcher) fail(template Template, recipient string, field zap.Field) {
	d.logger.Warn("failed to send notification",
		zap.String("template", string(template)),
		zap.String("recipient", recipient),
		field,
	)
	if d.recorder != nil {
		d.recorder.NotificationFailed(string(template))
	}
}

// Wait blocks until every dispatched email has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

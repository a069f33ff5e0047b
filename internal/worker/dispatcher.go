package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/event"
	"go.uber.org/zap"
)

// Dispatcher drains queued domain events and hands them to the notification
// sender. It satisfies the service layer's Notifier contract: Enqueue never
// blocks, and when the buffer is full the event is dropped with a log line
// rather than stalling an approval.
type Dispatcher struct {
	sender      port.NotificationSender
	logger      *zap.Logger
	queue       chan *event.Event
	sendTimeout time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDispatcher creates a notification dispatcher with the given buffer size
func NewDispatcher(sender port.NotificationSender, bufferSize int, logger *zap.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Dispatcher{
		sender:      sender,
		logger:      logger,
		queue:       make(chan *event.Event, bufferSize),
		sendTimeout: 15 * time.Second,
	}
}

// Enqueue queues an event for delivery without blocking
func (d *Dispatcher) Enqueue(evt *event.Event) {
	select {
	case d.queue <- evt:
	default:
		d.logger.Warn("Notification queue full, dropping event",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.String("claim_ref", evt.ClaimRef))
	}
}

// Start begins draining the queue
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dispatcher is already running")
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.isRunning = true

	go d.drainLoop(ctx)
	return nil
}

// Stop halts the drain loop. Events still buffered are delivered before the
// loop exits; events enqueued after Stop returns are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return
	}
	d.isRunning = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
}

// Name returns the worker name for identification
func (d *Dispatcher) Name() string {
	return "NotificationDispatcher"
}

func (d *Dispatcher) drainLoop(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case evt := <-d.queue:
			d.deliver(evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-d.queue:
					d.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(evt *event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, evt); err != nil {
		d.logger.Error("Notification delivery failed",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.Int64("recipient_id", evt.RecipientID),
			zap.Error(err))
	}
}

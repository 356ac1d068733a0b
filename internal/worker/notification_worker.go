package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/events"
	"github.com/JKGhartey/task-manager-sub001/internal/service"
)

// NotificationWorker delivers events on a background goroutine so request
// handlers never wait on notification side effects.
type NotificationWorker struct {
	target events.Dispatcher
	queue  chan queued
	logger *zap.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewNotificationWorker wraps target with a bounded queue.
func NewNotificationWorker(target events.Dispatcher, logger *zap.Logger, buffer int) *NotificationWorker {
	if buffer <= 0 {
		buffer = 64
	}
	return &NotificationWorker{target: target, queue: make(chan queued, buffer), logger: logger}
}

// StartNotificationWorker registers notification handlers and starts delivery.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, w *NotificationWorker) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if w != nil {
		w.Start(ctx)
	}
}

// Start launches the delivery loop; it exits when ctx is done or Stop is called.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				w.drain()
				return
			case item, ok := <-w.queue:
				if !ok {
					return
				}
				w.deliver(item)
			}
		}
	}()
}

// Publish enqueues the event; a full queue drops it with a warning.
func (w *NotificationWorker) Publish(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errors.New("notification worker stopped")
	}
	select {
	case w.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.UserID))
	}
	return nil
}

// Subscribe registers a handler on the wrapped dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.target.Subscribe(eventType, handler)
}

// Stop closes the queue and waits for queued events to be delivered.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *NotificationWorker) drain() {
	for {
		select {
		case item, ok := <-w.queue:
			if !ok {
				return
			}
			w.deliver(item)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(item queued) {
	if err := w.target.Publish(item.ctx, item.event); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("event_type", string(item.event.Type)),
			zap.Error(err))
	}
}

// Package notification pushes "operation ready" messages to the panels
// subscribed to a work center.
package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dieworks-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Store is the part of the data store the workers read.
type Store interface {
	GetOperation(ctx context.Context, id int64) (*model.WorkOrderOperation, error)
	SubscriptionsForWorkCenter(ctx context.Context, workCenterID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

const jobsPerWorker = 32

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*jobsPerWorker),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case operationID := <-wp.jobs:
			wp.notifyOperationReady(ctx, operationID)
		case <-ctx.Done():
			wp.log.Debug("notification worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an operation that just became startable. It never blocks
// the request path; when the queue is full the notification is dropped.
func (wp *WorkerPool) Dispatch(operationID int64) {
	select {
	case wp.jobs <- operationID:
	default:
		wp.log.Warn("notification queue full, dropping", zap.Int64("operation_id", operationID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// ReadyMessage is the push text for an operation that can start.
func ReadyMessage(op *model.WorkOrderOperation) string {
	number := fmt.Sprintf("work order %d", op.WorkOrderID)
	if op.WorkOrder != nil && op.WorkOrder.WorkOrderNumber != "" {
		number = op.WorkOrder.WorkOrderNumber
	}
	return fmt.Sprintf("%s: %s is ready", number, op.Name)
}

func (wp *WorkerPool) notifyOperationReady(ctx context.Context, operationID int64) {
	op, err := wp.store.GetOperation(ctx, operationID)
	if err != nil {
		wp.log.Error("load operation for notification", zap.Int64("operation_id", operationID), zap.Error(err))
		return
	}
	if op.Status != model.OperationStatusWaiting {
		return
	}

	subscriptions, err := wp.store.SubscriptionsForWorkCenter(ctx, op.WorkCenterID)
	if err != nil {
		wp.log.Error("load subscriptions", zap.Int64("work_center_id", op.WorkCenterID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.log.Info("sending operation ready notifications",
		zap.Int64("operation_id", operationID),
		zap.Int("subscriptions", len(subscriptions)))

	payload := []byte(ReadyMessage(op))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

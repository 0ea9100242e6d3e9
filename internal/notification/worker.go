package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"chair-reservation-backend/internal/model"
)

// NotificationSender sends one web push message.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the push payload the client service worker renders.
type Message struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	ChairID int64  `json:"chair_id"`
}

// WorkerPool tells subscribers that a chair has become free.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a pool of size workers. Call Start to run them.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*8),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the workers; they stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case chairID := <-wp.jobs:
			wp.notifyChairFree(ctx, chairID)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a chair-free notification. It never blocks the caller; when
// the queue is full the notification is dropped.
func (wp *WorkerPool) Dispatch(chairID int64) {
	select {
	case wp.jobs <- chairID:
	default:
		log.Printf("notification queue full; dropping chair %d", chairID)
	}
}

// Jobs returns the job queue for tests.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) notifyChairFree(ctx context.Context, chairID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_chair_mapping scm ON scm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("scm.chair_id = ?", chairID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for chair %d: %v", chairID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := fmt.Sprintf("チェア %d", chairID)
	var chair model.Chair
	if err := wp.db.WithContext(ctx).Select("display_name").First(&chair, chairID).Error; err != nil {
		log.Printf("Error fetching chair %d: %v", chairID, err)
	} else if chair.DisplayName != "" {
		label = chair.DisplayName
	}

	payload, err := json.Marshal(Message{
		Title:   "空席のお知らせ",
		Body:    fmt.Sprintf("%s が空きました", label),
		ChairID: chairID,
	})
	if err != nil {
		log.Printf("Error encoding notification for chair %d: %v", chairID, err)
		return
	}

	log.Printf("Sending %d notifications for chair %d", len(subscriptions), chairID)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Gone: the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

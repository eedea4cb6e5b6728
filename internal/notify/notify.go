package notify

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
)

// Event kinds delivered to the sink.
const (
	KindOrderCreated   = "order_created"
	KindOrderCancelled = "order_cancelled"
	KindProductChanged = "product_changed"
)

// Event is a structured notification. Delivery is always best-effort: a sink
// must never surface its failures to the operation that produced the event.
type Event struct {
	ID      string
	Kind    string
	Title   string
	Message string
}

// NewEvent builds an event with a fresh id.
func NewEvent(kind, title, message string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Title: title, Message: message}
}

// Notifier receives events. Implementations must be safe to call after the
// triggering transaction has committed and must do their own error containment
// beyond the error return; callers log the returned error and move on.
type Notifier interface {
	Notify(e Event) error
}

// Dispatch delivers the event and swallows everything, including panics.
// Services call this after commit so a broken sink cannot be mistaken for a
// transaction failure.
func Dispatch(n Notifier, e Event) {
	if n == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("notify: panic delivering %s event %s: %v", e.Kind, e.ID, rec)
		}
	}()
	if err := n.Notify(e); err != nil {
		log.Printf("notify: %s event %s not delivered: %v", e.Kind, e.ID, err)
	}
}

// DBNotifier persists one Notification row per linked recipient. The Telegram
// transport drains the table out of process.
type DBNotifier struct {
	DB *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier { return &DBNotifier{DB: db} }

func (n *DBNotifier) Notify(e Event) error {
	var recipients []models.User
	if err := n.DB.Where("telegram_chat_id <> 0").Find(&recipients).Error; err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	var failed int
	for _, u := range recipients {
		row := models.Notification{
			UserID:  u.ID,
			Kind:    e.Kind,
			Title:   e.Title,
			Message: e.Message,
			SentAt:  time.Now(),
		}
		if err := n.DB.Create(&row).Error; err != nil {
			// Per-recipient failure: log and keep delivering to the rest.
			log.Printf("notify: recipient %d skipped for event %s: %v", u.ID, e.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recipients failed", failed, len(recipients))
	}
	return nil
}

// LogNotifier writes events to the process log. Useful in development when no
// DB-backed sink is wanted.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) error {
	log.Printf("notify: [%s] %s: %s", e.Kind, e.Title, e.Message)
	return nil
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) error { return nil }

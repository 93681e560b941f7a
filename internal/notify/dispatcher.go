// Package notify carries generated insights out of the process. The core
// only builds payloads and hands them to a Dispatcher; actual delivery to
// devices is somebody else's job.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"moneta/internal/log"
)

// Notification is the payload handed to the dispatcher.
type Notification struct {
	OwnerID   string         `json:"owner_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Icon      string         `json:"icon,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToJSON converts the notification to JSON bytes
func (n Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NotificationFromJSON creates a notification from JSON bytes
func NotificationFromJSON(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// Dispatcher is the outbound port for notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// LogDispatcher writes notifications to the log. Used when AMQP is not
// configured, so the insight engine keeps working in a single-binary setup.
type LogDispatcher struct {
	logger *log.Logger
}

func NewLogDispatcher(logger *log.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.WithComponent(log.ComponentNotify)}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.InfoContext(ctx, "Notification (log only)",
		log.FieldOwner, n.OwnerID,
		"title", n.Title,
		"body", n.Body)
	return nil
}

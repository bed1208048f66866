package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLoginSucceeded = "auth.login.succeeded"
	EventTypeLoginFailed    = "auth.login.failed"
	EventTypeAccessDenied   = "authz.denied"
)

// Notifications carry only the generic categories a user may see.

type LoginSucceededEvent struct {
	BaseEvent
	ProfileID int64  `json:"profile_id"`
	Kind      string `json:"kind"`
}

func NewLoginSucceededEvent(profileID int64, kind string) *LoginSucceededEvent {
	return &LoginSucceededEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLoginSucceeded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"profile_id": profileID,
				"kind":       kind,
			},
		},
		ProfileID: profileID,
		Kind:      kind,
	}
}

type LoginFailedEvent struct {
	BaseEvent
	Kind     string `json:"kind"`
	Category string `json:"category"`
}

func NewLoginFailedEvent(kind, category string) *LoginFailedEvent {
	return &LoginFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLoginFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"kind":     kind,
				"category": category,
			},
		},
		Kind:     kind,
		Category: category,
	}
}

type AccessDeniedEvent struct {
	BaseEvent
	ProfileID int64  `json:"profile_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

func NewAccessDeniedEvent(profileID int64, action, reason string) *AccessDeniedEvent {
	return &AccessDeniedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessDenied,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"profile_id": profileID,
				"action":     action,
				"reason":     reason,
			},
		},
		ProfileID: profileID,
		Action:    action,
		Reason:    reason,
	}
}

// SubscribeNotificationLog forwards every notification to the logger. It
// stands in for a toast/notification service.
func SubscribeNotificationLog(bus *EventBus, logger *slog.Logger) {
	h := func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "notification",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}
	for _, t := range []string{EventTypeLoginSucceeded, EventTypeLoginFailed, EventTypeAccessDenied} {
		bus.Subscribe(t, h)
	}
}

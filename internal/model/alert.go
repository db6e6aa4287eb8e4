package model

import (
	"time"
	"unicode/utf8"
)

// MaxMessageLen is the size of alerts.message, in characters.
const MaxMessageLen = 240

// Alert is the DB entity persisted in the alerts table.
type Alert struct {
	ID          int64       `db:"id" json:"id"`
	ClientID    int64       `db:"client_id" json:"client_id"`
	Kind        Kind        `db:"kind" json:"kind"`
	Channel     Channel     `db:"channel" json:"channel"`
	Message     string      `db:"message" json:"message"`
	ScheduledAt time.Time   `db:"scheduled_at" json:"scheduled_at"`
	Sent        bool        `db:"sent" json:"sent"`
	SourceType  *SourceType `db:"source_type" json:"source_type,omitempty"` // nullable
	SourceID    *int64      `db:"source_id" json:"source_id,omitempty"`     // nullable
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// PendingAlert is an unsent alert joined with the contact details of its client.
type PendingAlert struct {
	Alert
	ClientName string  `db:"client_name"`
	Email      *string `db:"email"`
	Phone      *string `db:"phone"`
}

// AlertWithClient is the listing shape used by the admin API.
type AlertWithClient struct {
	Alert
	Client ClientSummary `db:"client" json:"client"`
}

// TruncateMessage cuts s to MaxMessageLen characters without splitting a rune.
func TruncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= MaxMessageLen {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxMessageLen {
			return s[:i]
		}
		n++
	}
	return s
}

package model

import "time"

// Delivery is one channel attempt made by the dispatcher, stored in ClickHouse.
type Delivery struct {
	ID          string    `db:"id" json:"id"` // ULID
	RunID       string    `db:"run_id" json:"run_id"`
	AlertID     int64     `db:"alert_id" json:"alert_id"`
	ClientID    int64     `db:"client_id" json:"client_id"`
	Kind        Kind      `db:"kind" json:"kind"`
	Channel     Channel   `db:"channel" json:"channel"`
	Delivered   bool      `db:"delivered" json:"delivered"`
	Error       string    `db:"error" json:"error,omitempty"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
}

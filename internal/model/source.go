package model

import "time"

const AppointmentStatusConfirmed = "Confirmed"

// UpcomingAppointment is a confirmed appointment joined with its client and,
// when booked inside a campaign, the campaign location.
type UpcomingAppointment struct {
	ID          int64     `db:"id"`
	ClientID    int64     `db:"client_id"`
	ScheduledAt time.Time `db:"scheduled_at"`
	Location    *string   `db:"location"`
	ClientName  string    `db:"client_name"`
	Email       *string   `db:"email"`
	Phone       *string   `db:"phone"`
}

// ExpiringWarranty is a warranty resolved through sale_item -> sale -> client.
type ExpiringWarranty struct {
	ID          int64     `db:"id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	ProductName string    `db:"product_name"`
	ClientID    int64     `db:"client_id"`
	ClientName  string    `db:"client_name"`
	Email       *string   `db:"email"`
	Phone       *string   `db:"phone"`
}

// Campaign is an ophthalmology "operativo": a dated event at a location.
type Campaign struct {
	ID       int64     `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Date     time.Time `db:"date" json:"date"`
	Location *string   `db:"location" json:"location,omitempty"`
}

// CampaignEvent is the payload consumed from Kafka when the CRUD layer creates a campaign.
type CampaignEvent struct {
	CampaignID int64 `json:"campaign_id"`
}

package model

import (
	"strings"
	"time"
)

type Client struct {
	ID        int64     `db:"id" json:"id"`
	RUT       string    `db:"rut" json:"rut"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"` // nullable
	Phone     *string   `db:"phone" json:"phone,omitempty"` // nullable
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClientSummary is the subset of client columns embedded in alert listings.
type ClientSummary struct {
	ID    int64   `db:"id" json:"id"`
	RUT   string  `db:"rut" json:"rut"`
	Name  string  `db:"name" json:"name"`
	Email *string `db:"email" json:"email,omitempty"`
	Phone *string `db:"phone" json:"phone,omitempty"`
}

// Contact holds the reachable addresses of a client. Blank values are treated as absent.
type Contact struct {
	Email string
	Phone string
}

func NewContact(email, phone *string) Contact {
	var c Contact
	if email != nil {
		c.Email = strings.TrimSpace(*email)
	}
	if phone != nil {
		c.Phone = strings.TrimSpace(*phone)
	}
	return c
}

func (c Client) Contact() Contact { return NewContact(c.Email, c.Phone) }

// Reachable reports whether at least one channel is available.
func (c Contact) Reachable() bool { return c.Email != "" || c.Phone != "" }

// Preferred picks email when present, else SMS. ok is false when unreachable.
func (c Contact) Preferred() (ch Channel, ok bool) {
	switch {
	case c.Email != "":
		return ChannelEmail, true
	case c.Phone != "":
		return ChannelSMS, true
	default:
		return "", false
	}
}

// Has reports whether the contact can receive on ch.
func (c Contact) Has(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email != ""
	case ChannelSMS:
		return c.Phone != ""
	default:
		return false
	}
}

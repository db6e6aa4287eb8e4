package model

import "strings"

type Channel string

const (
	ChannelEmail Channel = "Email"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) String() string { return string(c) }

// ParseChannel accepts the canonical names plus the legacy "Correo" spelling.
// Returns (value, true) if valid; otherwise ("", false).
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email", "correo", "mail":
		return ChannelEmail, true
	case "sms":
		return ChannelSMS, true
	default:
		return "", false
	}
}

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

type Kind string

const (
	KindReminderAppointment  Kind = "ReminderAppointment"
	KindWarrantyExpiry       Kind = "WarrantyExpiry"
	KindCampaignAnnouncement Kind = "CampaignAnnouncement"
)

func (k Kind) String() string { return string(k) }

func (k Kind) Valid() bool {
	return k == KindReminderAppointment || k == KindWarrantyExpiry || k == KindCampaignAnnouncement
}

// ParseKind normalizes input; legacy names (Control, Garantia, Operativo) map to
// their current kinds.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reminderappointment", "control":
		return KindReminderAppointment, true
	case "warrantyexpiry", "garantia":
		return KindWarrantyExpiry, true
	case "campaignannouncement", "operativo":
		return KindCampaignAnnouncement, true
	default:
		return "", false
	}
}

// Kinds lists every alert kind in display order.
func Kinds() []Kind {
	return []Kind{KindReminderAppointment, KindWarrantyExpiry, KindCampaignAnnouncement}
}

// SourceType names the table an alert was generated from.
type SourceType string

const (
	SourceAppointment SourceType = "appointment"
	SourceWarranty    SourceType = "warranty"
	SourceCampaign    SourceType = "campaign"
)

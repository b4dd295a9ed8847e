package storage

import "time"

// Resident is a building resident known to the bot. A resident is created on
// first contact and cannot submit meter readings until confirmed by an admin.
type Resident struct {
	ID        int64     `db:"id"`
	TeleID    int64     `db:"tele_id"`
	Name      string    `db:"name"`
	Apartment int       `db:"apartment"`
	Phone     string    `db:"phone"`
	Confirmed bool      `db:"confirmed"`
	IsAdmin   bool      `db:"is_admin"`
	Created   time.Time `db:"created"`
	Updated   time.Time `db:"updated"`
}

// MeterReading holds one resident's counters for a single calendar month.
// At most one row exists per (resident, year, month).
type MeterReading struct {
	ID          int64     `db:"id"`
	ResidentID  int64     `db:"resident_id"`
	PeriodYear  int       `db:"period_year"`
	PeriodMonth int       `db:"period_month"`
	HotKitchen  *int      `db:"hot_kitchen"`
	ColdKitchen *int      `db:"cold_kitchen"`
	HotBath     *int      `db:"hot_bath"`
	ColdBath    *int      `db:"cold_bath"`
	Created     time.Time `db:"created"`
	Updated     time.Time `db:"updated"`
}

// Channel identifies a single meter counter.
type Channel string

const (
	ChannelHotKitchen  Channel = "hot_kitchen"
	ChannelColdKitchen Channel = "cold_kitchen"
	ChannelHotBath     Channel = "hot_bath"
	ChannelColdBath    Channel = "cold_bath"
)

// Channels lists all counters in menu order.
var Channels = []Channel{ChannelHotKitchen, ChannelColdKitchen, ChannelHotBath, ChannelColdBath}

// Value returns the stored value for the channel, or nil when not yet set.
func (m *MeterReading) Value(ch Channel) *int {
	if m == nil {
		return nil
	}
	switch ch {
	case ChannelHotKitchen:
		return m.HotKitchen
	case ChannelColdKitchen:
		return m.ColdKitchen
	case ChannelHotBath:
		return m.HotBath
	case ChannelColdBath:
		return m.ColdBath
	}
	return nil
}

// SetValue stores a counter value on the reading.
func (m *MeterReading) SetValue(ch Channel, v int) {
	switch ch {
	case ChannelHotKitchen:
		m.HotKitchen = &v
	case ChannelColdKitchen:
		m.ColdKitchen = &v
	case ChannelHotBath:
		m.HotBath = &v
	case ChannelColdBath:
		m.ColdBath = &v
	}
}

// Sanction is a time-bound or indefinite posting restriction on a user
// within a single chat. Deactivation is terminal; rows are never removed.
type Sanction struct {
	ID         int64      `db:"id"`
	TeleID     int64      `db:"tele_id"`
	ChatID     int64      `db:"chat_id"`
	Reason     string     `db:"reason"`
	IssuerID   int64      `db:"issuer_id"`
	IssuerName string     `db:"issuer_name"`
	Active     bool       `db:"active"`
	ExpiresAt  *time.Time `db:"expires_at"`
	Created    time.Time  `db:"created"`
}

// Word is a single restricted token.
type Word struct {
	ID   int64  `db:"id"`
	Word string `db:"word"`
}

package domain

import "time"

// Reminder statuses.
const (
	ReminderPending   = "pending"
	ReminderFired     = "fired"
	ReminderCancelled = "cancelled"
)

// ReminderPrefix is prepended to the text sent when a reminder fires.
const ReminderPrefix = "*[REMINDER]* "

// Reminder is a persisted one-shot reminder.
type Reminder struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	GroupID     int64      `json:"groupId,omitempty"` // zero for private chats
	RemoteID    string     `json:"remoteId"`
	Message     string     `json:"message"`
	RemindAt    time.Time  `json:"remindAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	FiredAt     *time.Time `json:"firedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// Status derives the lifecycle state from the timestamps.
func (r Reminder) Status() string {
	switch {
	case r.CancelledAt != nil:
		return ReminderCancelled
	case r.FiredAt != nil:
		return ReminderFired
	default:
		return ReminderPending
	}
}

// User is a WhatsApp account the bot has seen.
type User struct {
	ID          int64     `json:"id"`
	SrcID       string    `json:"srcId"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Group is a WhatsApp group the bot has seen.
type Group struct {
	ID        int64     `json:"id"`
	SrcID     string    `json:"srcId"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Whitelist sender types.
const (
	SenderUser  = "user"
	SenderGroup = "group"
)

// WhitelistEntry grants a user or group access when access mode is whitelist.
type WhitelistEntry struct {
	SenderType string    `json:"senderType"`
	SenderID   string    `json:"senderId"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
}

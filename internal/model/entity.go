package model

import "time"

// TicketMessageEntity is a persisted ticket-chat message (GORM).
type TicketMessageEntity struct {
	ID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketID    string    `gorm:"size:64;not null;index"`
	SenderID    string    `gorm:"type:uuid;not null;index"`
	SenderEmail string    `gorm:"size:255;not null"`
	Body        string    `gorm:"type:text"`
	MediaURL    string    `gorm:"size:1024"`
	MediaType   string    `gorm:"size:64"`
	SentAt      time.Time `gorm:"column:sent_at;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (TicketMessageEntity) TableName() string { return "ticket_messages" }

// SessionArtifact is a finished screenshot or recording blob handed over by
// the capture client (GORM).
type SessionArtifact struct {
	ID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Token       string    `gorm:"size:128;not null;index"`
	Kind        string    `gorm:"size:20;not null"` // screenshot, recording
	MimeType    string    `gorm:"size:64;not null"`
	ContentHash string    `gorm:"size:64"`
	Tier        string    `gorm:"size:32"`
	VideoTimeMs int64     `gorm:"column:video_time_ms"`
	Data        []byte    `gorm:"type:bytea;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (SessionArtifact) TableName() string { return "session_artifacts" }

// Package store is the gorm-backed persistence collaborator: ticket chat
// messages from the relay and finished capture artifacts from the upload
// endpoint.
package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// Store persists ticket messages and session artifacts.
type Store struct {
	db *gorm.DB
}

// New creates a store over an open gorm DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveMessage persists one ticket-chat message.
func (s *Store) SaveMessage(ctx context.Context, msg model.ChatMessage) error {
	ent := &model.TicketMessageEntity{
		ID:          msg.ID,
		TicketID:    msg.TicketID,
		SenderID:    msg.SenderID,
		SenderEmail: msg.SenderEmail,
		Body:        msg.Body,
		MediaURL:    msg.MediaURL,
		MediaType:   msg.MediaType,
		SentAt:      msg.SentAt,
	}
	if ent.ID == "" {
		ent.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(ent).Error
}

// SaveArtifact persists a finished screenshot or recording blob and returns
// its id.
func (s *Store) SaveArtifact(ctx context.Context, token string, req model.UploadArtifactRequest) (string, error) {
	ent := &model.SessionArtifact{
		ID:          uuid.New().String(),
		Token:       token,
		Kind:        req.Kind,
		MimeType:    req.MimeType,
		ContentHash: req.ContentHash,
		Tier:        req.Tier,
		VideoTimeMs: req.VideoTimeMs,
		Data:        req.Data,
	}
	if err := s.db.WithContext(ctx).Create(ent).Error; err != nil {
		return "", err
	}
	return ent.ID, nil
}

type artifactRow struct {
	model.SessionArtifact
	DataLen int
}

// ListArtifacts returns artifact metadata for a session token, newest first.
// The blob itself stays in the database; only its length is reported.
func (s *Store) ListArtifacts(ctx context.Context, token string) ([]model.ArtifactInfo, error) {
	var rows []artifactRow
	err := s.db.WithContext(ctx).
		Model(&model.SessionArtifact{}).
		Select("id, token, kind, mime_type, content_hash, tier, video_time_ms, created_at, octet_length(data) AS data_len").
		Where("token = ?", token).
		Order("created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.ArtifactInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ArtifactInfo{
			ID:          r.ID,
			Token:       r.Token,
			Kind:        r.Kind,
			MimeType:    r.MimeType,
			ContentHash: r.ContentHash,
			Tier:        r.Tier,
			VideoTimeMs: r.VideoTimeMs,
			Size:        r.DataLen,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

package model

import "time"

// Artifact kinds accepted by POST /sessions/:token/artifacts.
const (
	ArtifactKindScreenshot = "screenshot"
	ArtifactKindRecording  = "recording"
)

// UploadArtifactRequest is the request body for POST /sessions/:token/artifacts.
// Data is base64 on the wire (encoding/json []byte convention).
type UploadArtifactRequest struct {
	Kind        string `json:"kind" binding:"required"`
	MimeType    string `json:"mime_type" binding:"required"`
	ContentHash string `json:"content_hash,omitempty"`
	Tier        string `json:"tier,omitempty"`
	VideoTimeMs int64  `json:"video_time_ms,omitempty"`
	Data        []byte `json:"data" binding:"required"`
}

// ArtifactInfo is the metadata view returned by the artifact listing.
type ArtifactInfo struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"`
	Kind        string    `json:"kind"`
	MimeType    string    `json:"mime_type"`
	ContentHash string    `json:"content_hash,omitempty"`
	Tier        string    `json:"tier,omitempty"`
	VideoTimeMs int64     `json:"video_time_ms,omitempty"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadArtifactResponse is the response for POST /sessions/:token/artifacts.
type UploadArtifactResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

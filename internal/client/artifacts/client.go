// Package artifacts uploads finished capture artifacts to the signaling
// service's persistence endpoint.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/capture"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// Client posts artifacts to POST <base>/sessions/<token>/artifacts.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// New creates an artifact client for one session token.
func New(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// SaveScreenshot uploads one screenshot artifact.
func (c *Client) SaveScreenshot(ctx context.Context, shot capture.Screenshot) error {
	return c.upload(ctx, model.UploadArtifactRequest{
		Kind:        model.ArtifactKindScreenshot,
		MimeType:    shot.MimeType,
		ContentHash: shot.ContentHash,
		VideoTimeMs: shot.VideoTime.Milliseconds(),
		Data:        shot.Data,
	})
}

// SaveRecording uploads one finished recording blob.
func (c *Client) SaveRecording(ctx context.Context, rec capture.Recording) error {
	return c.upload(ctx, model.UploadArtifactRequest{
		Kind:     model.ArtifactKindRecording,
		MimeType: rec.MimeType,
		Tier:     rec.Tier,
		Data:     rec.Data,
	})
}

func (c *Client) upload(ctx context.Context, req model.UploadArtifactRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	url := fmt.Sprintf("%s/sessions/%s/artifacts", c.baseURL, c.token)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload artifact: unexpected status %d", resp.StatusCode)
	}
	c.log.Info("artifact uploaded", zap.String("kind", req.Kind), zap.Int("bytes", len(req.Data)))
	return nil
}

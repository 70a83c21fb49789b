// Package main is the headless capture client: it joins a video session
// through the signaling relay as either the capturer (streams a camera
// source) or the operator (receives the stream and runs the capture
// pipeline).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/capture"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/artifacts"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/media"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/peer"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/signaling"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/trackio"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/config"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

var (
	flagRole      string
	flagRoom      string
	flagUserID    string
	flagEmail     string
	flagCompany   string
	flagSource    string
	flagAPIURL    string
	flagRecord    bool
	flagShotEvery time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "capture-client",
		Short: "Peer client: stream a camera source or watch and capture",
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&flagRole, "role", "capturer", "participant role: capturer or operator")
	rootCmd.Flags().StringVar(&flagRoom, "room", "", "session token / video room id (required)")
	rootCmd.Flags().StringVar(&flagUserID, "user-id", "", "authenticated user id (required)")
	rootCmd.Flags().StringVar(&flagEmail, "email", "", "authenticated email (required)")
	rootCmd.Flags().StringVar(&flagCompany, "company", "", "company of the participant")
	rootCmd.Flags().StringVar(&flagSource, "source", "camera.ivf", "IVF file standing in for the camera (capturer)")
	rootCmd.Flags().StringVar(&flagAPIURL, "api-url", "http://localhost:8090", "signaling service HTTP base for artifact upload")
	rootCmd.Flags().BoolVar(&flagRecord, "record", false, "record the received stream (operator)")
	rootCmd.Flags().DurationVar(&flagShotEvery, "screenshot-every", 0, "take a screenshot at this interval, 0 disables (operator)")
	_ = rootCmd.MarkFlagRequired("room")
	_ = rootCmd.MarkFlagRequired("user-id")
	_ = rootCmd.MarkFlagRequired("email")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	role := model.Role(flagRole)
	if role != model.RoleOperator && role != model.RoleCapturer {
		return fmt.Errorf("role must be operator or capturer, got %q", flagRole)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := model.Identity{UserID: flagUserID, Email: flagEmail, Role: role, Company: flagCompany}
	sig, err := signaling.Dial(ctx, cfg.SignalURL, id, logger)
	if err != nil {
		return err
	}
	defer sig.Close()

	ctrl := peer.NewController(peer.Config{
		Role:            role,
		Room:            flagRoom,
		ICEServers:      []webrtc.ICEServer{{URLs: []string{cfg.STUNServer}}},
		FeedbackRoute:   cfg.FeedbackRoute,
		DashboardRoute:  cfg.DashboardRoute,
		TailoredExitURL: cfg.TailoredExitURL,
	}, sig, &media.IVFDevice{Path: flagSource, Log: logger}, media.DefaultStrategies(), newPipeline(ctx, cfg, logger), logger)

	ctrl.OnRedirect = func(target string) {
		logger.Info("session over", zap.String("redirect", target))
		cancel()
	}
	ctrl.OnPlaybackBlocked = func() {
		logger.Warn("playback blocked until user gesture; stream continues")
	}

	go func() {
		if err := sig.Run(ctx, func(env model.Envelope) { dispatch(ctrl, env, logger) }); err != nil && ctx.Err() == nil {
			logger.Warn("signaling loop ended", zap.Error(err))
			cancel()
		}
	}()

	switch role {
	case model.RoleCapturer:
		if err := sig.JoinRoom(flagRoom); err != nil {
			return err
		}
		if err := sig.NotifyLinkOpened(flagRoom); err != nil {
			return err
		}
		if err := ctrl.StartCapturer(ctx); err != nil {
			return err
		}
	case model.RoleOperator:
		if err := sig.DeclareWaiting(flagRoom); err != nil {
			return err
		}
		if err := sig.JoinRoom(flagRoom); err != nil {
			return err
		}
		if err := ctrl.StartOperator(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	ctrl.Disconnect()
	return nil
}

func dispatch(ctrl *peer.Controller, env model.Envelope, logger *zap.Logger) {
	switch env.Event {
	case model.EventOffer:
		var sdp webrtc.SessionDescription
		if err := json.Unmarshal(env.Payload, &sdp); err != nil {
			logger.Warn("bad offer payload", zap.Error(err))
			return
		}
		if err := ctrl.HandleOffer(sdp); err != nil {
			logger.Warn("handle offer failed", zap.Error(err))
		}
	case model.EventAnswer:
		var sdp webrtc.SessionDescription
		if err := json.Unmarshal(env.Payload, &sdp); err != nil {
			logger.Warn("bad answer payload", zap.Error(err))
			return
		}
		if err := ctrl.HandleAnswer(sdp); err != nil {
			logger.Warn("handle answer failed", zap.Error(err))
		}
	case model.EventICECandidate:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Payload, &cand); err != nil {
			logger.Warn("bad candidate payload", zap.Error(err))
			return
		}
		if err := ctrl.HandleCandidate(cand); err != nil {
			logger.Warn("handle candidate failed", zap.Error(err))
		}
	case model.EventUserDisconnected:
		ctrl.HandlePeerDisconnect()
	case model.EventUserJoined:
		logger.Info("peer opened the session link", zap.String("room", env.Room))
	}
}

// pipeline attaches the capture pipeline to the first remote track: the
// screenshot taker and recorder feed artifacts to the persistence endpoint.
type pipeline struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
	once   sync.Once
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) *pipeline {
	return &pipeline{ctx: ctx, cfg: cfg, logger: logger}
}

func (p *pipeline) Play(track *webrtc.TrackRemote) error {
	p.once.Do(func() {
		src := trackio.NewSource(p.ctx, track, p.logger)
		sink := artifacts.New(flagAPIURL, flagRoom, p.logger)

		if flagShotEvery > 0 {
			taker := capture.NewScreenshotTaker(src, p.cfg.ScreenshotCooldown, nil, p.logger)
			go p.screenshotLoop(taker, sink)
		}
		if flagRecord {
			rec := capture.NewRecorder(capture.DefaultTiers(), capture.StaticSupport{
				"video/webm;codecs=vp9": {},
				"video/webm;codecs=vp8": {},
			}, nil, p.logger)
			if err := rec.Start(); err != nil {
				p.logger.Error("recording not started", zap.Error(err))
				return
			}
			go rec.Pump(p.ctx, src, p.cfg.RecordChunkEvery)
			go p.finalizeOnExit(rec, sink)
		}
	})
	return nil
}

func (p *pipeline) screenshotLoop(taker *capture.ScreenshotTaker, sink capture.ArtifactSink) {
	ticker := time.NewTicker(flagShotEvery)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			shot, err := taker.Capture(p.ctx)
			if err != nil {
				p.logger.Debug("screenshot skipped", zap.Error(err))
				continue
			}
			saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sink.SaveScreenshot(saveCtx, *shot); err != nil {
				p.logger.Warn("screenshot upload failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (p *pipeline) finalizeOnExit(rec *capture.Recorder, sink capture.ArtifactSink) {
	<-p.ctx.Done()
	blob, err := rec.Stop()
	if err != nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := sink.SaveRecording(saveCtx, *blob); err != nil {
		p.logger.Warn("recording upload failed", zap.Error(err))
	}
}

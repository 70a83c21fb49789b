package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/handler"
	"github.com/abrarmughal4480/Webrtc-sub001/pkg/constants"
)

// New builds the HTTP router.
func New(
	signalWS *handler.SignalWSHandler,
	artifacts *handler.ArtifactHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// Persistence collaborator surface for finished capture artifacts
	r.POST(constants.PathArtifacts, artifacts.Upload)
	r.GET(constants.PathArtifacts, artifacts.List)

	// WebSocket signaling: /ws/signal?user_id=&email=&role=&company=
	r.GET(constants.PathSignalWS, signalWS.ServeWS)

	return r
}

package constants

// HTTP paths served by the signaling service.
const (
	PathHealth    = "/health"
	PathReady     = "/ready"
	PathSignalWS  = "/ws/signal"
	PathArtifacts = "/sessions/:token/artifacts"
)

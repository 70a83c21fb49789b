package capture

import "context"

// ArtifactSink is the persistence collaborator: it accepts finished
// artifacts and reports success or failure, nothing more.
type ArtifactSink interface {
	SaveScreenshot(ctx context.Context, shot Screenshot) error
	SaveRecording(ctx context.Context, rec Recording) error
}

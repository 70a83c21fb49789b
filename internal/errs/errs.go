package errs

import "errors"

// Domain sentinel errors, mapped to HTTP codes in handlers.
var (
	ErrInvalidArtifactKind = errors.New("invalid artifact kind")
	ErrArtifactTooLarge    = errors.New("artifact exceeds size limit")
	ErrArtifactNotFound    = errors.New("artifact not found")
)

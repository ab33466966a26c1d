package gate

import "errors"

// Sentinel errors returned by Gate.Authorize. Denials wrap ErrUnauthorized
// with the action and resource type, so match them with errors.Is.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

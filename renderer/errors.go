package renderer

import "github.com/pkg/errors"

var (
	ErrNoSubscriber = errors.New("renderer: no simulation subscriber attached")
	ErrNoSink       = errors.New("renderer: no frame sink attached")
)

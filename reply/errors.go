package reply

import "errors"

// ErrNoImageGenerator is reported when an imggen character is processed
// without an ImageGenerator.
var ErrNoImageGenerator = errors.New("no image generator configured")

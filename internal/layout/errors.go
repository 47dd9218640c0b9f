package layout

import "errors"

var (
	// ErrUnknownPerspective reports a perspective outside Day, Week, Month, Year.
	ErrUnknownPerspective = errors.New("unknown perspective")
	// ErrEventOutOfRange reports an event outside its timeline under the
	// reject policy.
	ErrEventOutOfRange = errors.New("event outside timeline range")
	// ErrUnknownPolicy reports an out-of-range policy name that is not recognised.
	ErrUnknownPolicy = errors.New("unknown out-of-range policy")
)

// ErrInvalidUnitWidth reports a configured day width that is not a positive
// even number of pixels.
var ErrInvalidUnitWidth = errors.New("unit width must be a positive even number")

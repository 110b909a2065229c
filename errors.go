package profscale

import (
	"errors"

	"github.com/profscale/profscale/types"
)

// Common errors returned by the Controller.
var (
	// ErrControllerStarted is returned when starting an already started
	// controller.
	ErrControllerStarted = errors.New("controller already started")

	// ErrControllerClosed is returned for operations on a stopped
	// controller.
	ErrControllerClosed = errors.New("controller is closed")
)

// Re-export shared sentinel errors from the types package.
var (
	ErrGroupClosed     = types.ErrGroupClosed
	ErrGroupNotStarted = types.ErrGroupNotStarted
	ErrConnectivity    = types.ErrConnectivity
)

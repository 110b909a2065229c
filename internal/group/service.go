package group

import (
	"context"
	"fmt"

	"github.com/profscale/profscale/types"
)

// Service creates NATS-backed group handles.
//
// All groups created by one service share the connection and tuning from
// the base config; only the group path varies per Join.
type Service struct {
	base Config
}

// Compile-time assertion that Service implements types.CoordinationService.
var _ types.CoordinationService = (*Service)(nil)

// NewService creates a coordination service from a validated base config.
// The GroupPath field of the base config is ignored; Join supplies it.
func NewService(base Config) *Service {
	return &Service{base: base}
}

// Join returns an inert handle on the named group.
//
// Parameters:
//   - ctx: Unused; kept for interface symmetry with remote coordinators
//   - groupPath: Group name, unique per cluster concern
//
// Returns:
//   - types.Group: Group handle, started with Start
//   - error: Configuration error
func (s *Service) Join(_ context.Context, groupPath string) (types.Group, error) {
	if groupPath == "" {
		return nil, fmt.Errorf("group path is required")
	}

	cfg := s.base
	cfg.GroupPath = groupPath

	return New(cfg)
}

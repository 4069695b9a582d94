// Package websocket - this file contains the StateProvider used to read the
// persisted live state and write the timer columns.
// file: websocket/state_provider.go
package websocket

import (
	"context"
	"fmt"

	"go-meet-control/models"
)

// StateProvider is the websocket layer's view of the live meet state: the
// snapshot pushed to observers and the timer columns the timer owns.
type StateProvider interface {
	Snapshot(ctx context.Context, competitionID string) (interface{}, error)
	SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error
}

// unconfiguredProvider answers until main installs the real provider.
type unconfiguredProvider struct{}

func (unconfiguredProvider) Snapshot(ctx context.Context, competitionID string) (interface{}, error) {
	return nil, fmt.Errorf("%w: live state provider not configured", models.ErrNotFound)
}

func (unconfiguredProvider) SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error {
	return nil
}

var defaultStateProvider StateProvider = unconfiguredProvider{}

// SetStateProvider installs the provider used for snapshots on connect and resync.
func SetStateProvider(p StateProvider) {
	if p == nil {
		p = unconfiguredProvider{}
	}
	defaultStateProvider = p
}

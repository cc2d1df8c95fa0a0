package service

import (
	"context"
	"fmt"

	"github.com/and161185/sahaay-store/internal/clock"
	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/repository"
)

// PresenceService keeps device and owner liveness in step.
type PresenceService struct {
	users   repository.UserRepository
	devices repository.DeviceRepository
	clock   clock.Clock
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(users repository.UserRepository, devices repository.DeviceRepository, c clock.Clock) *PresenceService {
	if c == nil {
		c = clock.System
	}
	return &PresenceService{users: users, devices: devices, clock: c}
}

// Heartbeat marks a device online or offline and touches its owner.
func (s *PresenceService) Heartbeat(ctx context.Context, deviceID string, online bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: empty device id", errs.ErrValidation)
	}
	node, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.devices.Heartbeat(ctx, deviceID, online, now); err != nil {
		return err
	}
	return s.users.Touch(ctx, node.UserID, online, now)
}

// ConnectPeers replaces the peer set of a device; duplicates and self-links are dropped.
func (s *PresenceService) ConnectPeers(ctx context.Context, deviceID string, peers []string) ([]string, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: empty device id", errs.ErrValidation)
	}
	seen := make(map[string]bool, len(peers))
	clean := make([]string, 0, len(peers))
	for _, p := range peers {
		if p == "" || p == deviceID || seen[p] {
			continue
		}
		seen[p] = true
		clean = append(clean, p)
	}
	if err := s.devices.SetPeers(ctx, deviceID, clean); err != nil {
		return nil, err
	}
	return clean, nil
}

// Neighbours returns devices that list deviceID as a peer.
func (s *PresenceService) Neighbours(ctx context.Context, deviceID string) ([]model.DeviceNode, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: empty device id", errs.ErrValidation)
	}
	return s.devices.ListByPeer(ctx, deviceID)
}

// Enqueue records delta messages queued (positive) or delivered (negative) on a device.
func (s *PresenceService) Enqueue(ctx context.Context, deviceID string, delta int) (int, error) {
	if deviceID == "" {
		return 0, fmt.Errorf("%w: empty device id", errs.ErrValidation)
	}
	return s.devices.AdjustQueue(ctx, deviceID, delta)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/sahaay-store/internal/clock"
	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/geo"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/repository"
)

// Defaults applied when callers leave fields empty.
const (
	DefaultTTL      = 6 * time.Hour
	DefaultRadiusKm = 5.0
)

// SubmitRequest is a new distress call.
type SubmitRequest struct {
	ID           string // generated when empty
	SenderID     string
	MessageType  model.MessageType
	UrgencyLevel model.UrgencyLevel
	Content      string
	Location     model.Location
	TTL          time.Duration // DefaultTTL when zero
}

// NearbyRequest asks for live emergencies around a point.
type NearbyRequest struct {
	Center    geo.Point
	RadiusKm  float64               // DefaultRadiusKm when zero
	Urgencies []model.UrgencyLevel  // CRITICAL when empty
	Statuses  []model.MessageStatus // PENDING when empty
	Limit     int
}

// DispatchService enforces message invariants on top of the repositories.
type DispatchService struct {
	messages repository.DistressRepository
	routes   repository.RouteRepository
	clock    clock.Clock
	ttl      time.Duration
}

// NewDispatchService constructs a DispatchService; ttl <= 0 selects DefaultTTL.
func NewDispatchService(messages repository.DistressRepository, routes repository.RouteRepository, c clock.Clock, ttl time.Duration) *DispatchService {
	if c == nil {
		c = clock.System
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DispatchService{messages: messages, routes: routes, clock: c, ttl: ttl}
}

// Submit validates a distress call and stores it as PENDING.
// Validation rules:
// - sender and content not empty
// - message type and urgency level known
// - location within WGS84 bounds
// - TTL, if given, positive
func (s *DispatchService) Submit(ctx context.Context, req SubmitRequest) (*model.DistressMessage, error) {
	if strings.TrimSpace(req.SenderID) == "" {
		return nil, fmt.Errorf("%w: empty sender", errs.ErrValidation)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", errs.ErrValidation)
	}
	if !req.MessageType.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", errs.ErrValidation, req.MessageType)
	}
	if !req.UrgencyLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency level %q", errs.ErrValidation, req.UrgencyLevel)
	}
	if !(geo.Point{Lat: req.Location.Latitude, Lon: req.Location.Longitude}).Valid() {
		return nil, fmt.Errorf("%w: location out of range", errs.ErrValidation)
	}
	if req.TTL < 0 {
		return nil, fmt.Errorf("%w: negative ttl", errs.ErrValidation)
	}

	id := req.ID
	if id == "" {
		u, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		id = u.String()
	}
	ttl := req.TTL
	if ttl == 0 {
		ttl = s.ttl
	}

	now := s.clock.Now()
	m := &model.DistressMessage{
		ID:              id,
		SenderID:        req.SenderID,
		MessageType:     req.MessageType,
		UrgencyLevel:    req.UrgencyLevel,
		Content:         req.Content,
		Location:        req.Location,
		Status:          model.StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		RelayCount:      0,
		Acknowledgments: []model.Acknowledgment{},
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Acknowledge records a responder on a live message.
func (s *DispatchService) Acknowledge(ctx context.Context, id, responderID, deviceID string) error {
	if id == "" || responderID == "" {
		return fmt.Errorf("%w: empty id/responder", errs.ErrValidation)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if !m.Status.CanTransitionTo(model.StatusAcknowledged) || m.Expired(now) {
		return fmt.Errorf("%w: %s is %s", errs.ErrInvalidTransition, id, m.Status)
	}
	return s.messages.Acknowledge(ctx, id, model.Acknowledgment{ResponderID: responderID, DeviceID: deviceID, At: now})
}

// RecordHop appends the next relay hop of a live message. The hop, the relay
// count and the PENDING to DELIVERED move are stored together or not at all.
func (s *DispatchService) RecordHop(ctx context.Context, messageID, fromDevice, toDevice string) (*model.MessageRoute, error) {
	if messageID == "" || fromDevice == "" || toDevice == "" {
		return nil, fmt.Errorf("%w: empty message/device id", errs.ErrValidation)
	}
	if fromDevice == toDevice {
		return nil, fmt.Errorf("%w: hop to self", errs.ErrValidation)
	}
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if m.Status.Terminal() || m.Expired(now) {
		return nil, fmt.Errorf("%w: %s is %s", errs.ErrInvalidTransition, messageID, m.Status)
	}

	rt := &model.MessageRoute{
		MessageID:    messageID,
		FromDeviceID: fromDevice,
		ToDeviceID:   toDevice,
		Timestamp:    now,
	}
	if _, err := s.routes.Relay(ctx, rt, now); err != nil {
		return nil, err
	}
	return rt, nil
}

// Route returns the hops of a message in propagation order.
func (s *DispatchService) Route(ctx context.Context, messageID string) ([]model.MessageRoute, error) {
	if messageID == "" {
		return nil, fmt.Errorf("%w: empty message id", errs.ErrValidation)
	}
	return s.routes.ListByMessage(ctx, messageID)
}

// Nearby returns live emergencies around a point, most severe first.
func (s *DispatchService) Nearby(ctx context.Context, req NearbyRequest) ([]model.DistressMessage, error) {
	if !req.Center.Valid() {
		return nil, fmt.Errorf("%w: center out of range", errs.ErrValidation)
	}
	if req.RadiusKm < 0 {
		return nil, fmt.Errorf("%w: negative radius", errs.ErrValidation)
	}
	q := repository.NearbyQuery{
		Center:    req.Center,
		RadiusKm:  req.RadiusKm,
		Urgencies: req.Urgencies,
		Statuses:  req.Statuses,
		Now:       s.clock.Now(),
		Limit:     req.Limit,
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}
	if len(q.Urgencies) == 0 {
		q.Urgencies = []model.UrgencyLevel{model.UrgencyCritical}
	}
	if len(q.Statuses) == 0 {
		q.Statuses = []model.MessageStatus{model.StatusPending}
	}
	for _, u := range q.Urgencies {
		if !u.Valid() {
			return nil, fmt.Errorf("%w: unknown urgency level %q", errs.ErrValidation, u)
		}
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, st)
		}
	}
	return s.messages.FindNearby(ctx, q)
}

// SweepExpired marks every overdue message EXPIRED and returns how many changed.
func (s *DispatchService) SweepExpired(ctx context.Context) (int64, error) {
	return s.messages.ExpireDue(ctx, s.clock.Now())
}

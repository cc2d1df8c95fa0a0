package service

import (
	"context"
	"time"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/repository"
)

type fakeDistressRepo struct {
	created   *model.DistressMessage
	createErr error

	getOut *model.DistressMessage
	getErr error

	nearbyIn  repository.NearbyQuery
	nearbyOut []model.DistressMessage

	ackInID string
	ackIn   *model.Acknowledgment
	ackErr  error

	expireIn  time.Time
	expireOut int64
}

var _ repository.DistressRepository = (*fakeDistressRepo)(nil)

func (f *fakeDistressRepo) Create(_ context.Context, m *model.DistressMessage) error {
	f.created = m
	return f.createErr
}
func (f *fakeDistressRepo) GetByID(_ context.Context, id string) (*model.DistressMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil || f.getOut.ID != id {
		return nil, errs.ErrNotFound
	}
	cp := *f.getOut
	return &cp, nil
}
func (f *fakeDistressRepo) ListBySender(context.Context, string) ([]model.DistressMessage, error) {
	return nil, nil
}
func (f *fakeDistressRepo) FindNearby(_ context.Context, q repository.NearbyQuery) ([]model.DistressMessage, error) {
	f.nearbyIn = q
	return f.nearbyOut, nil
}
func (f *fakeDistressRepo) Acknowledge(_ context.Context, id string, ack model.Acknowledgment) error {
	f.ackInID, f.ackIn = id, &ack
	return f.ackErr
}
func (f *fakeDistressRepo) MarkDelivered(context.Context, string) error { return nil }
func (f *fakeDistressRepo) IncrementRelay(context.Context, string) (int, error) {
	return 0, nil
}
func (f *fakeDistressRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	f.expireIn = now
	return f.expireOut, nil
}

type fakeRouteRepo struct {
	hops      []model.MessageRoute
	appendErr error

	// relayErr fails Relay before anything is stored.
	relayErr error
	relayAt  time.Time
	relays   map[string]int
}

var _ repository.RouteRepository = (*fakeRouteRepo)(nil)

func (f *fakeRouteRepo) Append(_ context.Context, r *model.MessageRoute) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.hops = append(f.hops, *r)
	return nil
}
func (f *fakeRouteRepo) Relay(_ context.Context, r *model.MessageRoute, now time.Time) (int, error) {
	f.relayAt = now
	if f.relayErr != nil {
		return 0, f.relayErr
	}
	last := -1
	for _, h := range f.hops {
		if h.MessageID == r.MessageID && h.HopCount > last {
			last = h.HopCount
		}
	}
	r.HopCount = last + 1
	f.hops = append(f.hops, *r)
	if f.relays == nil {
		f.relays = map[string]int{}
	}
	f.relays[r.MessageID]++
	return f.relays[r.MessageID], nil
}
func (f *fakeRouteRepo) ListByMessage(_ context.Context, messageID string) ([]model.MessageRoute, error) {
	var out []model.MessageRoute
	for _, h := range f.hops {
		if h.MessageID == messageID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	touchedID string
	touchedOn bool
	touchedAt time.Time
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) GetByID(context.Context, string) (*model.User, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeUserRepo) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeUserRepo) Touch(_ context.Context, id string, active bool, at time.Time) error {
	f.touchedID, f.touchedOn, f.touchedAt = id, active, at
	return nil
}

type fakeDeviceRepo struct {
	node *model.DeviceNode

	heartbeatOn bool
	heartbeatAt time.Time

	peersIn []string

	listIn  string
	listOut []model.DeviceNode

	queueIn  int
	queueOut int
	queueErr error
}

var _ repository.DeviceRepository = (*fakeDeviceRepo)(nil)

func (f *fakeDeviceRepo) Create(context.Context, *model.DeviceNode) error { return nil }
func (f *fakeDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*model.DeviceNode, error) {
	if f.node == nil || f.node.DeviceID != deviceID {
		return nil, errs.ErrNotFound
	}
	cp := *f.node
	return &cp, nil
}
func (f *fakeDeviceRepo) Heartbeat(_ context.Context, _ string, online bool, at time.Time) error {
	f.heartbeatOn, f.heartbeatAt = online, at
	return nil
}
func (f *fakeDeviceRepo) SetPeers(_ context.Context, _ string, peers []string) error {
	f.peersIn = append([]string(nil), peers...)
	return nil
}
func (f *fakeDeviceRepo) ListByPeer(_ context.Context, peerID string) ([]model.DeviceNode, error) {
	f.listIn = peerID
	return f.listOut, nil
}
func (f *fakeDeviceRepo) AdjustQueue(_ context.Context, _ string, delta int) (int, error) {
	f.queueIn = delta
	return f.queueOut, f.queueErr
}

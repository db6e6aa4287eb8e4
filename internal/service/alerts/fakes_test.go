package alerts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/notify"
	"github.com/jmehdipour/optica-notifier/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. It mirrors the
// SQL semantics the service relies on: the unique source key, the dedupe
// predicate and the pending ordering.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	alerts       []model.Alert
	clients      map[int64]model.Client
	appointments []model.UpcomingAppointment
	warranties   []model.ExpiringWarranty
	campaigns    map[int64]model.Campaign

	failCreateFor map[int64]bool // client ids
	failMarkFor   map[int64]bool // alert ids
	dedupeCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		clients:       map[int64]model.Client{},
		campaigns:     map[int64]model.Campaign{},
		failCreateFor: map[int64]bool{},
		failMarkFor:   map[int64]bool{},
	}
}

func strp(s string) *string { return &s }

func (m *memStore) addClient(id int64, name string, email, phone *string) model.Client {
	c := model.Client{ID: id, RUT: "1-9", Name: name, Email: email, Phone: phone}
	m.clients[id] = c
	return c
}

func (m *memStore) addAlert(a model.Alert) model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.alerts = append(m.alerts, a)
	return a
}

func (m *memStore) snapshot() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Alert(nil), m.alerts...)
}

// ---- AlertsRepository ----

func (m *memStore) Create(_ context.Context, a *model.Alert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateFor[a.ClientID] {
		return false, errors.New("insert failed")
	}
	if a.SourceType != nil && a.SourceID != nil {
		for _, x := range m.alerts {
			if x.ClientID == a.ClientID && x.SourceType != nil && x.SourceID != nil &&
				*x.SourceType == *a.SourceType && *x.SourceID == *a.SourceID {
				return false, nil
			}
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.Sent = false
	m.alerts = append(m.alerts, *a)
	return true, nil
}

func (m *memStore) ExistsDuplicate(_ context.Context, q repository.DedupeQuery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dedupeCalls++
	for _, x := range m.alerts {
		if x.ClientID != q.ClientID || x.Kind != q.Kind {
			continue
		}
		sameSource := x.SourceType != nil && x.SourceID != nil && *x.SourceType == q.SourceType && *x.SourceID == q.SourceID
		inWindow := !x.ScheduledAt.Before(q.From) && !x.ScheduledAt.After(q.To)
		if sameSource || inWindow {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListPending(_ context.Context, now time.Time, limit int) ([]model.PendingAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PendingAlert
	for _, a := range m.alerts {
		if a.Sent || a.ScheduledAt.After(now) {
			continue
		}
		c := m.clients[a.ClientID]
		out = append(out, model.PendingAlert{Alert: a, ClientName: c.Name, Email: c.Email, Phone: c.Phone})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkSent fails on a done context the way database/sql does.
func (m *memStore) MarkSent(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarkFor[id] {
		return false, errors.New("update failed")
	}
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			if m.alerts[i].Sent {
				return false, nil
			}
			m.alerts[i].Sent = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*model.AlertWithClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			c := m.clients[a.ClientID]
			return &model.AlertWithClient{Alert: a, Client: model.ClientSummary{ID: c.ID, Name: c.Name}}, nil
		}
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context, f repository.AlertFilter) ([]model.AlertWithClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AlertWithClient
	for _, a := range m.alerts {
		if f.ClientID > 0 && a.ClientID != f.ClientID {
			continue
		}
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.Sent != nil && a.Sent != *f.Sent {
			continue
		}
		out = append(out, model.AlertWithClient{Alert: a})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ---- source repositories ----

type clientsRepo struct{ *memStore }

func (r clientsRepo) GetByID(_ context.Context, id int64) (*model.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r clientsRepo) ListReachable(_ context.Context) ([]model.Client, error) {
	var out []model.Client
	for _, c := range r.clients {
		if c.Contact().Reachable() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListConfirmedBetween(_ context.Context, from, to time.Time) ([]model.UpcomingAppointment, error) {
	var out []model.UpcomingAppointment
	for _, a := range m.appointments {
		if !a.ScheduledAt.Before(from) && !a.ScheduledAt.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListExpiringBetween(_ context.Context, from, to time.Time) ([]model.ExpiringWarranty, error) {
	var out []model.ExpiringWarranty
	for _, w := range m.warranties {
		if !w.EndDate.Before(from) && !w.EndDate.After(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

type campaignsRepo struct{ *memStore }

func (r campaignsRepo) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// fakeGateway delivers unless the address contains "fail". onSend runs before
// the result is built.
type fakeGateway struct {
	mu     sync.Mutex
	calls  []notify.Request
	onSend func()
}

func (g *fakeGateway) Send(_ context.Context, req notify.Request) notify.Result {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	hook := g.onSend
	g.mu.Unlock()
	if hook != nil {
		hook()
	}

	var res notify.Result
	for _, ch := range req.Channels {
		addr := req.Email
		if ch == model.ChannelSMS {
			addr = req.Phone
		}
		if addr == "" || strings.Contains(addr, "fail") {
			res.Channels = append(res.Channels, notify.ChannelResult{Channel: ch, Err: errors.New("provider error")})
			continue
		}
		res.Channels = append(res.Channels, notify.ChannelResult{Channel: ch, Delivered: true})
	}
	return res
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeRecorder struct {
	rows []model.Delivery
	err  error
}

func (r *fakeRecorder) InsertBatch(_ context.Context, ds []model.Delivery) error {
	r.rows = append(r.rows, ds...)
	return r.err
}

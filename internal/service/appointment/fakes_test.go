package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type slotKey struct {
	provider int64
	unix     int64
}

// fakeAppointmentRepo mirrors the partial unique index: one active
// appointment per provider and slot.
type fakeAppointmentRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.Appointment
	active map[slotKey]int64
	users  *fakeUsers

	listLimit, listOffset int
	createErr             error
	slotTakenHook         func()
}

func newFakeAppointmentRepo(users *fakeUsers) *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		byID:   map[int64]*model.Appointment{},
		active: map[slotKey]int64{},
		users:  users,
	}
}

func (r *fakeAppointmentRepo) SlotTaken(_ context.Context, providerID int64, at time.Time) (bool, error) {
	if r.slotTakenHook != nil {
		r.slotTakenHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[slotKey{providerID, at.Unix()}]
	return ok, nil
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	key := slotKey{a.ProviderID, a.Date.Unix()}
	if _, ok := r.active[key]; ok {
		return repository.ErrSlotTaken
	}
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.byID[a.ID] = &cp
	r.active[key] = a.ID
	return nil
}

func (r *fakeAppointmentRepo) LoadByID(_ context.Context, id int64) (*model.AppointmentDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	provider := r.users.users[a.ProviderID]
	user := r.users.users[a.UserID]
	return &model.AppointmentDetails{
		Appointment: *a,
		Provider:    model.UserSummary{ID: provider.ID, Name: provider.Name, Email: provider.Email},
		User:        model.UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	}, nil
}

func (r *fakeAppointmentRepo) UpdateCancellation(_ context.Context, id int64, at time.Time) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.CanceledAt != nil {
		return nil, repository.ErrAlreadyCanceled
	}
	a.CanceledAt = &at
	a.UpdatedAt = at
	delete(r.active, slotKey{a.ProviderID, a.Date.Unix()})
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepo) ListActiveByUser(_ context.Context, userID int64, limit, offset int) ([]*model.AppointmentListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listLimit, r.listOffset = limit, offset

	var items []*model.AppointmentListItem
	for _, a := range r.byID {
		if a.UserID != userID || a.CanceledAt != nil {
			continue
		}
		provider := r.users.users[a.ProviderID]
		item := &model.AppointmentListItem{
			ID:       a.ID,
			Date:     a.Date,
			Provider: model.UserSummary{ID: provider.ID, Name: provider.Name},
		}
		if provider.AvatarID != nil {
			item.Provider.Avatar = &model.File{ID: *provider.AvatarID, Path: "avatar.png"}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })

	if offset >= len(items) {
		return []*model.AppointmentListItem{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (r *fakeAppointmentRepo) ListTakenSlots(_ context.Context, providerID int64, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for key, id := range r.active {
		d := r.byID[id].Date
		if key.provider == providerID && !d.Before(from) && d.Before(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[int64]*model.User
	err   error
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: map[int64]*model.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetProvider(ctx context.Context, id int64) (*model.User, error) {
	u, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.Provider {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeSink struct {
	mu      sync.Mutex
	notices []model.InAppNotice
	mails   []model.Mail
	err     error
}

func (s *fakeSink) Notify(_ context.Context, n model.InAppNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.notices = append(s.notices, n)
	return nil
}

func (s *fakeSink) SendMail(_ context.Context, m model.Mail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.mails = append(s.mails, m)
	return nil
}

var errSinkDown = errors.New("sink down")

func user(id int64, name, email string, provider bool) *model.User {
	u := &model.User{Name: name, Email: email, Provider: provider}
	u.ID = id
	return u
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/events"
)

type memProfiles struct {
	mu        sync.Mutex
	byID      map[string]*domain.Profile
	failEmail map[string]error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: map[string]*domain.Profile{}, failEmail: map[string]error{}}
}

func (m *memProfiles) find(email string) *domain.Profile {
	for _, p := range m.byID {
		if p.Email == email {
			return p
		}
	}
	return nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.find(email); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failEmail[p.Email]; err != nil {
		return err
	}
	if m.find(p.Email) != nil {
		return domain.ErrConflict
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProfiles) UpdateFromDirectory(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failEmail[p.Email]; err != nil {
		return err
	}
	stored, ok := m.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.FullName = p.FullName
	stored.JobTitle = p.JobTitle
	stored.Department = p.Department
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *memProfiles) SetAvatar(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.AvatarURL = url
	return nil
}

func (m *memProfiles) ExistingEmails(_ context.Context, emails []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, e := range emails {
		if m.find(e) != nil {
			out[e] = true
		}
	}
	return out, nil
}

func (m *memProfiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memIdentities struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Identity
	seq     int
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byEmail: map[string]*domain.Identity{}}
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byEmail[email]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memIdentities) FindOrCreate(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byEmail[email]; ok {
		cp := *i
		return &cp, nil
	}
	m.seq++
	i := &domain.Identity{ID: fmt.Sprintf("id-%d", m.seq), Email: email, CreatedAt: time.Now()}
	m.byEmail[email] = i
	cp := *i
	return &cp, nil
}

func (m *memIdentities) SetPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byEmail {
		if i.ID == id {
			i.PasswordHash = hash
			return nil
		}
	}
	return domain.ErrNotFound
}

type memVendors struct {
	mu      sync.Mutex
	byExtID map[string]*domain.Vendor
	calls   int
	failOn  func(call int, batch []*domain.Vendor) error
}

func newMemVendors() *memVendors {
	return &memVendors{byExtID: map[string]*domain.Vendor{}}
}

func (m *memVendors) UpsertBatch(_ context.Context, batch []*domain.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	seen := map[string]bool{}
	for _, v := range batch {
		if seen[v.ExternalVendorID] {
			return errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time")
		}
		seen[v.ExternalVendorID] = true
	}
	if m.failOn != nil {
		if err := m.failOn(m.calls, batch); err != nil {
			return err
		}
	}
	for _, v := range batch {
		cp := *v
		cp.SyncedAt = time.Now()
		if existing, ok := m.byExtID[v.ExternalVendorID]; ok {
			cp.ID = existing.ID
		} else {
			cp.ID = "vendor-" + v.ExternalVendorID
		}
		m.byExtID[v.ExternalVendorID] = &cp
	}
	return nil
}

func (m *memVendors) ExistingExternalIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := m.byExtID[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

type memAvatars struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemAvatars() *memAvatars { return &memAvatars{data: map[string][]byte{}} }

func (m *memAvatars) Put(_ context.Context, id, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

func (m *memAvatars) Get(_ context.Context, id string) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.data[id]; ok {
		return "image/jpeg", d, nil
	}
	return "", nil, domain.ErrNotFound
}

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettings(values map[string]string) *memSettings {
	if values == nil {
		values = map[string]string{}
	}
	return &memSettings{values: values}
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memSettings) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (m *memAudit) Append(_ context.Context, e *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = fmt.Sprintf("audit-%d", len(m.entries)+1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) List(_ context.Context, entityType string, limit int) ([]*domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if entityType == "" || m.entries[i].EntityType == entityType {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type memPreviews struct {
	users   map[string][]domain.ExternalUser
	vendors map[string][]domain.ExternalVendor
}

func newMemPreviews() *memPreviews {
	return &memPreviews{users: map[string][]domain.ExternalUser{}, vendors: map[string][]domain.ExternalVendor{}}
}

func (m *memPreviews) SaveUsers(_ context.Context, owner string, u []domain.ExternalUser) error {
	m.users[owner] = u
	return nil
}

func (m *memPreviews) LoadUsers(_ context.Context, owner string) ([]domain.ExternalUser, error) {
	u, ok := m.users[owner]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memPreviews) SaveVendors(_ context.Context, owner string, v []domain.ExternalVendor) error {
	m.vendors[owner] = v
	return nil
}

func (m *memPreviews) LoadVendors(_ context.Context, owner string) ([]domain.ExternalVendor, error) {
	v, ok := m.vendors[owner]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

type fakeUserDirectory struct {
	users      []domain.ExternalUser
	err        error
	photo      []byte
	photoCalls int
	listCalls  int
}

func (f *fakeUserDirectory) ListUsers(context.Context) ([]domain.ExternalUser, error) {
	f.listCalls++
	return f.users, f.err
}

func (f *fakeUserDirectory) UserPhoto(context.Context, string) ([]byte, string) {
	f.photoCalls++
	if f.photo == nil {
		return nil, ""
	}
	return f.photo, "image/jpeg"
}

type fakeVendorDirectory struct {
	vendors   []domain.ExternalVendor
	err       error
	listCalls int
}

func (f *fakeVendorDirectory) ListVendors(context.Context) ([]domain.ExternalVendor, error) {
	f.listCalls++
	return f.vendors, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type+":"+e.Lane)
	}
	return out
}

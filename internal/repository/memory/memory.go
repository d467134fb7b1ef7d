// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness rules as the Postgres schema
// and is used to exercise services without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type tables struct {
	profiles     map[uuid.UUID]model.Profile
	clinics      map[uuid.UUID]model.Clinic
	providers    map[uuid.UUID]model.Provider
	services     map[uuid.UUID]model.Service
	bookings     map[uuid.UUID]model.Booking
	integrations map[uuid.UUID]model.Integration
	outbox       map[uuid.UUID]model.OutboxEvent
}

func newTables() tables {
	return tables{
		profiles:     make(map[uuid.UUID]model.Profile),
		clinics:      make(map[uuid.UUID]model.Clinic),
		providers:    make(map[uuid.UUID]model.Provider),
		services:     make(map[uuid.UUID]model.Service),
		bookings:     make(map[uuid.UUID]model.Booking),
		integrations: make(map[uuid.UUID]model.Integration),
		outbox:       make(map[uuid.UUID]model.OutboxEvent),
	}
}

// txLog remembers the prior value of every row written inside a
// transaction. Rollback replays it in reverse, leaving writes made outside
// the transaction untouched.
type txLog struct {
	undo []func()
}

// record must be called with the store locked, before the row at id changes.
func record[V any](tx *txLog, table map[uuid.UUID]V, id uuid.UUID) {
	if tx == nil {
		return
	}
	prev, existed := table[id]
	tx.undo = append(tx.undo, func() {
		if existed {
			table[id] = prev
		} else {
			delete(table, id)
		}
	})
}

// Store holds every table behind one mutex. Transactions are serialized
// against each other and roll back through their own write log.
type Store struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	data  tables
	fails map[string]error
}

func New() *Store {
	return &Store{data: newTables(), fails: make(map[string]error)}
}

// Fail makes every later call of op return err until cleared with a nil err.
// Ops are named "<table>.<method>", e.g. "providers.Create".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, op)
		return
	}
	s.fails[op] = err
}

// lock acquires the store and returns the injected failure for op, if any.
func (s *Store) lock(op string) error {
	s.mu.Lock()
	if err, ok := s.fails[op]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Repositories() *repository.Repositories {
	return s.repositories(nil)
}

func (s *Store) repositories(tx *txLog) *repository.Repositories {
	return &repository.Repositories{
		Profiles:     &profiles{s, tx},
		Clinics:      &clinics{s, tx},
		Providers:    &providers{s, tx},
		Services:     &services{s, tx},
		Bookings:     &bookings{s, tx},
		Integrations: &integrations{s, tx},
		Outbox:       &outbox{s, tx},
	}
}

func (s *Store) Admin() repository.AdminRepository {
	return &admin{s}
}

func (s *Store) WithTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	if err := s.lock("tx.Begin"); err != nil {
		return err
	}
	s.mu.Unlock()

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txLog{}
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(s.repositories(tx)); err != nil {
		rollback()
		return err
	}

	if err := s.lock("tx.Commit"); err != nil {
		rollback()
		return err
	}
	s.mu.Unlock()
	return nil
}

// Counts reports rows per table, for assertions.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"profiles":     len(s.data.profiles),
		"clinics":      len(s.data.clinics),
		"providers":    len(s.data.providers),
		"services":     len(s.data.services),
		"bookings":     len(s.data.bookings),
		"integrations": len(s.data.integrations),
		"outbox":       len(s.data.outbox),
	}
}

// Integrations returns stored integrations, for assertions.
func (s *Store) Integrations() []model.Integration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Integration, 0, len(s.data.integrations))
	for _, i := range s.data.integrations {
		out = append(out, i)
	}
	return out
}

// Events returns outbox events of eventType, for assertions.
func (s *Store) Events(eventType string) []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OutboxEvent
	for _, e := range s.data.outbox {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type profiles struct {
	s  *Store
	tx *txLog
}

func (r *profiles) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if err := r.s.lock("profiles.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.data.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *profiles) GetByAuthID(ctx context.Context, authID string) (*model.Profile, error) {
	if err := r.s.lock("profiles.GetByAuthID"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.byAuthID(authID)
}

func (r *profiles) byAuthID(authID string) (*model.Profile, error) {
	for _, p := range r.s.data.profiles {
		if p.AuthID == authID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *profiles) Create(ctx context.Context, profile *model.Profile) error {
	if err := r.s.lock("profiles.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, err := r.byAuthID(profile.AuthID); err == nil {
		return repository.ErrDuplicate
	}
	profile.Touch()
	record(r.tx, r.s.data.profiles, profile.ID)
	r.s.data.profiles[profile.ID] = *profile
	return nil
}

func (r *profiles) CreateIfAbsent(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	if err := r.s.lock("profiles.CreateIfAbsent"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if existing, err := r.byAuthID(profile.AuthID); err == nil {
		return existing, nil
	}
	profile.Touch()
	record(r.tx, r.s.data.profiles, profile.ID)
	r.s.data.profiles[profile.ID] = *profile
	stored := *profile
	return &stored, nil
}

func (r *profiles) Update(ctx context.Context, profile *model.Profile) error {
	if err := r.s.lock("profiles.Update"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	current, ok := r.s.data.profiles[profile.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Name, current.Email, current.Phone = profile.Name, profile.Email, profile.Phone
	current.UpdatedAt = time.Now().UTC()
	record(r.tx, r.s.data.profiles, profile.ID)
	r.s.data.profiles[profile.ID] = current
	return nil
}

func (r *profiles) UpdateRole(ctx context.Context, id uuid.UUID, from, to model.Role) error {
	if err := r.s.lock("profiles.UpdateRole"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	current, ok := r.s.data.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Role != from {
		return repository.ErrStale
	}
	current.Role = to
	record(r.tx, r.s.data.profiles, id)
	r.s.data.profiles[id] = current
	return nil
}

type clinics struct {
	s  *Store
	tx *txLog
}

func (r *clinics) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	if err := r.s.lock("clinics.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	c, ok := r.s.data.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *clinics) GetBySlug(ctx context.Context, slug string) (*model.Clinic, error) {
	if err := r.s.lock("clinics.GetBySlug"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.clinics {
		if c.Slug == slug {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *clinics) Create(ctx context.Context, clinic *model.Clinic) error {
	if err := r.s.lock("clinics.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.clinics {
		if c.Slug == clinic.Slug {
			return repository.ErrDuplicate
		}
	}
	clinic.Touch()
	record(r.tx, r.s.data.clinics, clinic.ID)
	r.s.data.clinics[clinic.ID] = *clinic
	return nil
}

func (r *clinics) CreateIfAbsent(ctx context.Context, clinic *model.Clinic) (*model.Clinic, error) {
	if err := r.s.lock("clinics.CreateIfAbsent"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.clinics {
		if c.Slug == clinic.Slug {
			c := c
			return &c, nil
		}
	}
	clinic.Touch()
	record(r.tx, r.s.data.clinics, clinic.ID)
	r.s.data.clinics[clinic.ID] = *clinic
	stored := *clinic
	return &stored, nil
}

type providers struct {
	s  *Store
	tx *txLog
}

func (r *providers) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	if err := r.s.lock("providers.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.data.providers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *providers) Create(ctx context.Context, provider *model.Provider) error {
	if err := r.s.lock("providers.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	provider.Touch()
	record(r.tx, r.s.data.providers, provider.ID)
	r.s.data.providers[provider.ID] = *provider
	return nil
}

func (r *providers) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.ProviderListing, error) {
	if err := r.s.lock("providers.List"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var out []*model.ProviderListing
	for _, p := range r.s.data.providers {
		profile := r.s.data.profiles[p.ProfileID]
		if filters != nil && filters.PendingOnly && profile.Role != model.RoleUser {
			continue
		}
		out = append(out, &model.ProviderListing{
			Provider:   p,
			Name:       profile.Name,
			Email:      profile.Email,
			Role:       profile.Role,
			ClinicName: r.s.data.clinics[p.ClinicID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

type services struct {
	s  *Store
	tx *txLog
}

func (r *services) Create(ctx context.Context, service *model.Service) error {
	if err := r.s.lock("services.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	service.Touch()
	record(r.tx, r.s.data.services, service.ID)
	r.s.data.services[service.ID] = *service
	return nil
}

func (r *services) ListByProvider(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	if err := r.s.lock("services.ListByProvider"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*model.Service
	for _, svc := range r.s.data.services {
		if svc.ProviderID != providerID || (activeOnly && !svc.Active) {
			continue
		}
		svc := svc
		out = append(out, &svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type bookings struct {
	s  *Store
	tx *txLog
}

func holdsSlot(status model.BookingStatus) bool {
	return status == model.BookingStatusPending || status == model.BookingStatusConfirmed
}

func (r *bookings) HasConfirmed(ctx context.Context, slot model.Slot) (bool, error) {
	if err := r.s.lock("bookings.HasConfirmed"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	for _, b := range r.s.data.bookings {
		if b.Slot() == slot && b.Status == model.BookingStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *bookings) Create(ctx context.Context, booking *model.Booking) error {
	if err := r.s.lock("bookings.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, b := range r.s.data.bookings {
		if b.Slot() == booking.Slot() && holdsSlot(b.Status) && holdsSlot(booking.Status) {
			return repository.ErrDuplicate
		}
	}
	booking.Touch()
	record(r.tx, r.s.data.bookings, booking.ID)
	r.s.data.bookings[booking.ID] = *booking
	return nil
}

func (r *bookings) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	if err := r.s.lock("bookings.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *bookings) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	if err := r.s.lock("bookings.List"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.s.data.bookings {
		if filters != nil {
			if filters.PatientID != uuid.Nil && b.PatientID != filters.PatientID {
				continue
			}
			if filters.ProviderID != uuid.Nil && b.ProviderID != filters.ProviderID {
				continue
			}
			if filters.Status != "" && b.Status != filters.Status {
				continue
			}
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *bookings) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) error {
	if err := r.s.lock("bookings.UpdateStatus"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != from {
		return repository.ErrStale
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	record(r.tx, r.s.data.bookings, id)
	r.s.data.bookings[id] = b
	return nil
}

func (r *bookings) Recent(ctx context.Context, limit int) ([]*model.BookingActivity, error) {
	if err := r.s.lock("bookings.Recent"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	all := make([]model.Booking, 0, len(r.s.data.bookings))
	for _, b := range r.s.data.bookings {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]*model.BookingActivity, 0, len(all))
	for _, b := range all {
		provider := r.s.data.providers[b.ProviderID]
		out = append(out, &model.BookingActivity{
			ID:           b.ID,
			PatientName:  r.s.data.profiles[b.PatientID].Name,
			ProviderName: r.s.data.profiles[provider.ProfileID].Name,
			ServiceType:  b.ServiceType,
			Date:         b.Date,
			Time:         b.Time,
			Status:       b.Status,
			CreatedAt:    b.CreatedAt,
		})
	}
	return out, nil
}

type integrations struct {
	s  *Store
	tx *txLog
}

func (r *integrations) Create(ctx context.Context, integration *model.Integration) error {
	if err := r.s.lock("integrations.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	integration.Touch()
	record(r.tx, r.s.data.integrations, integration.ID)
	r.s.data.integrations[integration.ID] = *integration
	return nil
}

type outbox struct {
	s  *Store
	tx *txLog
}

func (r *outbox) Create(ctx context.Context, event *model.OutboxEvent) error {
	if err := r.s.lock("outbox.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	record(r.tx, r.s.data.outbox, event.ID)
	r.s.data.outbox[event.ID] = *event
	return nil
}

func (r *outbox) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	if err := r.s.lock("outbox.ClaimPending"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var out []*model.OutboxEvent
	for _, e := range r.s.data.outbox {
		if e.Status == model.OutboxStatusPending && (e.ClaimedUntil == nil || e.ClaimedUntil.Before(now)) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	until := now.Add(lease)
	for _, e := range out {
		e.ClaimedUntil = &until
		e.UpdatedAt = now
		record(r.tx, r.s.data.outbox, e.ID)
		r.s.data.outbox[e.ID] = *e
	}
	return out, nil
}

func (r *outbox) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if err := r.s.lock("outbox.MarkProcessed"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	e, ok := r.s.data.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = model.OutboxStatusProcessed
	e.ErrorMessage = nil
	e.ProcessedAt = &now
	record(r.tx, r.s.data.outbox, id)
	r.s.data.outbox[id] = e
	return nil
}

func (r *outbox) MarkFailed(ctx context.Context, id uuid.UUID, message string, maxRetries int) error {
	if err := r.s.lock("outbox.MarkFailed"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	e, ok := r.s.data.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.RetryCount++
	e.ErrorMessage = &message
	e.ClaimedUntil = nil
	if e.RetryCount >= maxRetries {
		e.Status = model.OutboxStatusFailed
	}
	record(r.tx, r.s.data.outbox, id)
	r.s.data.outbox[id] = e
	return nil
}

func (r *outbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := r.s.lock("outbox.DeleteProcessedBefore"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.data.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			record(r.tx, r.s.data.outbox, id)
			delete(r.s.data.outbox, id)
			n++
		}
	}
	return n, nil
}

type admin struct{ s *Store }

func (r *admin) Counts(ctx context.Context) (*model.SummaryCounts, error) {
	if err := r.s.lock("admin.Counts"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	counts := &model.SummaryCounts{
		Providers: int64(len(r.s.data.providers)),
		Clinics:   int64(len(r.s.data.clinics)),
		Bookings:  int64(len(r.s.data.bookings)),
	}
	for _, p := range r.s.data.providers {
		if r.s.data.profiles[p.ProfileID].Role == model.RoleUser {
			counts.PendingProviders++
		}
	}
	for _, svc := range r.s.data.services {
		if svc.Active {
			counts.ActiveServices++
		}
	}
	return counts, nil
}

func (r *admin) ClinicRollups(ctx context.Context) ([]*model.ClinicRollup, error) {
	if err := r.s.lock("admin.ClinicRollups"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	byClinic := make(map[uuid.UUID]*model.ClinicRollup, len(r.s.data.clinics))
	var out []*model.ClinicRollup
	for _, c := range r.s.data.clinics {
		rollup := &model.ClinicRollup{ClinicID: c.ID.String(), Name: c.Name}
		byClinic[c.ID] = rollup
		out = append(out, rollup)
	}
	for _, p := range r.s.data.providers {
		if rollup, ok := byClinic[p.ClinicID]; ok {
			rollup.Providers++
		}
	}
	for _, svc := range r.s.data.services {
		if rollup, ok := byClinic[svc.ClinicID]; ok {
			rollup.Services++
		}
	}
	for _, b := range r.s.data.bookings {
		if rollup, ok := byClinic[r.s.data.providers[b.ProviderID].ClinicID]; ok {
			rollup.Bookings++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ repository.Transactor = (*Store)(nil)

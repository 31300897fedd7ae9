package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/clock"
	"eventbooking/internal/models"
)

// MemoryStore keeps events, bookings and users in process memory and satisfies
// the same contracts as the Postgres repositories. Rows a transaction reads for
// update or writes stay locked until it ends, like Postgres row locks. Writes are
// staged and applied on commit so a failed transaction leaves no trace.
type MemoryStore struct {
	clock clock.Clock

	rowLocks sync.Map // row key -> *sync.Mutex

	mu       sync.RWMutex
	events   map[uuid.UUID]models.Event
	bookings map[uuid.UUID]models.Booking
	users    map[uuid.UUID]models.User
}

type memTx struct {
	events   map[uuid.UUID]models.Event
	bookings map[uuid.UUID]models.Booking
	users    map[uuid.UUID]models.User

	held []string
	seen map[string]bool
}

type memTxKey struct{}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryStore{
		clock:    clk,
		events:   make(map[uuid.UUID]models.Event),
		bookings: make(map[uuid.UUID]models.Booking),
		users:    make(map[uuid.UUID]models.User),
	}
}

func (s *MemoryStore) Events() EventStore     { return memoryEvents{s} }
func (s *MemoryStore) Bookings() BookingStore { return memoryBookings{s} }
func (s *MemoryStore) Users() UserStore       { return memoryUsers{s} }

func memTxFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

func eventKey(id uuid.UUID) string   { return "event:" + id.String() }
func bookingKey(id uuid.UUID) string { return "booking:" + id.String() }
func userKey(email string) string    { return "user:" + email }
func userIDKey(id uuid.UUID) string  { return "user-id:" + id.String() }

// lockRow takes the row lock for the rest of the transaction. Re-locking a held row is a no-op.
func (s *MemoryStore) lockRow(tx *memTx, key string) {
	if tx.seen[key] {
		return
	}
	v, _ := s.rowLocks.LoadOrStore(key, &sync.Mutex{})
	v.(*sync.Mutex).Lock()
	tx.seen[key] = true
	tx.held = append(tx.held, key)
}

func (s *MemoryStore) release(tx *memTx) {
	for i := len(tx.held) - 1; i >= 0; i-- {
		v, _ := s.rowLocks.Load(tx.held[i])
		v.(*sync.Mutex).Unlock()
	}
	tx.held = nil
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if memTxFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &memTx{
		events:   make(map[uuid.UUID]models.Event),
		bookings: make(map[uuid.UUID]models.Booking),
		users:    make(map[uuid.UUID]models.User),
		seen:     make(map[string]bool),
	}
	defer s.release(tx)

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range tx.events {
		s.events[id] = e
	}
	for id, b := range tx.bookings {
		s.bookings[id] = b
	}
	for id, u := range tx.users {
		s.users[id] = u
	}
	return nil
}

func (s *MemoryStore) write(ctx context.Context, fn func(tx *memTx) error) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(memTxFrom(ctx))
	})
}

// forUpdate locks key when ctx carries a transaction.
func (s *MemoryStore) forUpdate(ctx context.Context, key string) {
	if tx := memTxFrom(ctx); tx != nil {
		s.lockRow(tx, key)
	}
}

func (s *MemoryStore) event(ctx context.Context, id uuid.UUID) (models.Event, bool) {
	if tx := memTxFrom(ctx); tx != nil {
		if e, ok := tx.events[id]; ok {
			return e, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok
}

func (s *MemoryStore) allEvents(ctx context.Context) []models.Event {
	s.mu.RLock()
	merged := make(map[uuid.UUID]models.Event, len(s.events))
	for id, e := range s.events {
		merged[id] = e
	}
	s.mu.RUnlock()

	if tx := memTxFrom(ctx); tx != nil {
		for id, e := range tx.events {
			merged[id] = e
		}
	}

	events := make([]models.Event, 0, len(merged))
	for _, e := range merged {
		events = append(events, e)
	}
	return events
}

func (s *MemoryStore) booking(ctx context.Context, id uuid.UUID) (models.Booking, bool) {
	if tx := memTxFrom(ctx); tx != nil {
		if b, ok := tx.bookings[id]; ok {
			return b, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	return b, ok
}

func (s *MemoryStore) allBookings(ctx context.Context) []models.Booking {
	s.mu.RLock()
	merged := make(map[uuid.UUID]models.Booking, len(s.bookings))
	for id, b := range s.bookings {
		merged[id] = b
	}
	s.mu.RUnlock()

	if tx := memTxFrom(ctx); tx != nil {
		for id, b := range tx.bookings {
			merged[id] = b
		}
	}

	bookings := make([]models.Booking, 0, len(merged))
	for _, b := range merged {
		bookings = append(bookings, b)
	}
	return bookings
}

func (s *MemoryStore) SeatDrift(ctx context.Context) ([]models.SeatDrift, error) {
	confirmed := make(map[uuid.UUID]int)
	for _, b := range s.allBookings(ctx) {
		if b.Status == models.BookingStatusConfirmed {
			confirmed[b.EventID] += b.SeatsBooked
		}
	}

	var drift []models.SeatDrift
	for _, e := range s.allEvents(ctx) {
		d := models.SeatDrift{
			EventID:        e.ID,
			TotalSeats:     e.TotalSeats,
			AvailableSeats: e.AvailableSeats,
			ConfirmedSeats: confirmed[e.ID],
		}
		if d.AvailableSeats != d.ExpectedAvailable() {
			drift = append(drift, d)
		}
	}
	sort.Slice(drift, func(i, j int) bool {
		return drift[i].EventID.String() < drift[j].EventID.String()
	})
	return drift, nil
}

func (s *MemoryStore) SetAvailableSeats(ctx context.Context, id uuid.UUID, available int) error {
	return s.write(ctx, func(tx *memTx) error {
		s.lockRow(tx, eventKey(id))
		e, ok := s.event(ctx, id)
		if !ok {
			return fmt.Errorf("event %s not found", id)
		}
		e.AvailableSeats = available
		e.UpdatedAt = s.clock.Now()
		tx.events[id] = e
		return nil
	})
}

type memoryEvents struct{ s *MemoryStore }

func (m memoryEvents) Create(ctx context.Context, event *models.Event) error {
	return m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, eventKey(event.ID))
		if _, exists := m.s.event(ctx, event.ID); exists {
			return fmt.Errorf("event %s already exists", event.ID)
		}
		tx.events[event.ID] = *event
		return nil
	})
}

func (m memoryEvents) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := m.s.event(ctx, id)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m memoryEvents) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	m.s.forUpdate(ctx, eventKey(id))
	return m.GetByID(ctx, id)
}

func (m memoryEvents) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	for _, id := range ids {
		if e, ok := m.s.event(ctx, id); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m memoryEvents) Update(ctx context.Context, event *models.Event) error {
	return m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, eventKey(event.ID))
		current, ok := m.s.event(ctx, event.ID)
		if !ok {
			return nil
		}
		current.Name = event.Name
		current.Description = event.Description
		current.StartTime = event.StartTime
		current.EndTime = event.EndTime
		current.Venue = event.Venue
		current.Location = event.Location
		current.PriceCents = event.PriceCents
		current.UpdatedAt = event.UpdatedAt
		tx.events[event.ID] = current
		return nil
	})
}

func (m memoryEvents) DecrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (int, bool, error) {
	var remaining int
	var applied bool
	err := m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, eventKey(id))
		e, ok := m.s.event(ctx, id)
		if !ok || e.AvailableSeats < n {
			return nil
		}
		e.AvailableSeats -= n
		e.UpdatedAt = m.s.clock.Now()
		tx.events[id] = e
		remaining, applied = e.AvailableSeats, true
		return nil
	})
	return remaining, applied, err
}

func (m memoryEvents) IncrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (int, error) {
	var available int
	err := m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, eventKey(id))
		e, ok := m.s.event(ctx, id)
		if !ok {
			return fmt.Errorf("event %s not found", id)
		}
		e.AvailableSeats = min(e.TotalSeats, e.AvailableSeats+n)
		e.UpdatedAt = m.s.clock.Now()
		tx.events[id] = e
		available = e.AvailableSeats
		return nil
	})
	return available, err
}

func (m memoryEvents) Archive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var changed bool
	err := m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, eventKey(id))
		e, ok := m.s.event(ctx, id)
		if !ok || e.Archived {
			return nil
		}
		e.Archived = true
		e.UpdatedAt = at
		tx.events[id] = e
		changed = true
		return nil
	})
	return changed, err
}

func (m memoryEvents) ArchiveEndedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := m.s.write(ctx, func(tx *memTx) error {
		candidates := m.s.allEvents(ctx)
		sortByStart(candidates)
		for _, c := range candidates {
			if c.Archived || !c.EndTime.Before(cutoff) {
				continue
			}
			m.s.lockRow(tx, eventKey(c.ID))
			e, ok := m.s.event(ctx, c.ID)
			if !ok || e.Archived {
				continue
			}
			e.Archived = true
			e.UpdatedAt = cutoff
			tx.events[e.ID] = e
			ids = append(ids, e.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func sortByStart(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].ID.String() < events[j].ID.String()
	})
}

func (m memoryEvents) ListUpcoming(ctx context.Context, now, until time.Time) ([]models.Event, error) {
	var events []models.Event
	for _, e := range m.s.allEvents(ctx) {
		if !e.Archived && e.EndTime.After(now) && !e.StartTime.After(until) {
			events = append(events, e)
		}
	}
	sortByStart(events)
	return events, nil
}

func (m memoryEvents) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	for _, e := range m.s.allEvents(ctx) {
		if e.CreatorID == creatorID {
			events = append(events, e)
		}
	}
	sortByStart(events)
	return events, nil
}

func (m memoryEvents) SearchByName(ctx context.Context, query string, limit int) ([]models.Event, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	var events []models.Event
	for _, e := range m.s.allEvents(ctx) {
		if !e.Archived && strings.Contains(strings.ToLower(e.Name), needle) {
			events = append(events, e)
		}
	}
	sortByStart(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

type memoryBookings struct{ s *MemoryStore }

func (m memoryBookings) Create(ctx context.Context, booking *models.Booking) error {
	return m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, bookingKey(booking.ID))
		if _, exists := m.s.booking(ctx, booking.ID); exists {
			return fmt.Errorf("booking %s already exists", booking.ID)
		}
		tx.bookings[booking.ID] = *booking
		return nil
	})
}

func (m memoryBookings) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := m.s.booking(ctx, id)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m memoryBookings) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	m.s.forUpdate(ctx, bookingKey(id))
	return m.GetByID(ctx, id)
}

func (m memoryBookings) Update(ctx context.Context, booking *models.Booking) error {
	return m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, bookingKey(booking.ID))
		current, ok := m.s.booking(ctx, booking.ID)
		if !ok {
			return nil
		}
		current.Status = booking.Status
		current.TotalPriceCents = booking.TotalPriceCents
		current.ConfirmationArtifact = booking.ConfirmationArtifact
		current.ConfirmedAt = booking.ConfirmedAt
		current.CancelledAt = booking.CancelledAt
		current.UpdatedAt = booking.UpdatedAt
		tx.bookings[booking.ID] = current
		return nil
	})
}

func (m memoryBookings) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	for _, b := range m.s.allBookings(ctx) {
		if b.UserID == userID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID.String() < bookings[j].ID.String()
	})
	return bookings, nil
}

func (m memoryBookings) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	for _, b := range m.s.allBookings(ctx) {
		if b.EventID == eventID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].ID.String() < bookings[j].ID.String()
	})
	return bookings, nil
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	return m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, userKey(user.Email))
		if existing, _ := m.GetByEmail(ctx, user.Email); existing != nil {
			return nil
		}
		tx.users[user.ID] = *user
		return nil
	})
}

func (m memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if tx := memTxFrom(ctx); tx != nil {
		if u, ok := tx.users[id]; ok {
			return &u, nil
		}
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	if tx := memTxFrom(ctx); tx != nil {
		for _, u := range tx.users {
			if u.Email == email {
				return &u, nil
			}
		}
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m memoryUsers) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	var found bool
	err := m.s.write(ctx, func(tx *memTx) error {
		m.s.lockRow(tx, userIDKey(id))
		u, err := m.GetByID(ctx, id)
		if err != nil || u == nil {
			return err
		}
		u.IsActive = active
		tx.users[id] = *u
		found = true
		return nil
	})
	return found, err
}

func (m memoryUsers) Count(ctx context.Context) (int, error) {
	m.s.mu.RLock()
	n := len(m.s.users)
	if tx := memTxFrom(ctx); tx != nil {
		for id := range tx.users {
			if _, ok := m.s.users[id]; !ok {
				n++
			}
		}
	}
	m.s.mu.RUnlock()
	return n, nil
}

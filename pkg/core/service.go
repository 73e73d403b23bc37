package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RemotePolicy decides what happens to a new note whose remote write fails.
type RemotePolicy int

const (
	// FailOnRemoteError aborts the save; nothing is persisted locally.
	FailOnRemoteError RemotePolicy = iota
	// PersistOffline stores the note without a remote identity and returns it
	// together with an *OfflineError. Push attaches the identity later.
	PersistOffline
)

func (p RemotePolicy) String() string {
	if p == PersistOffline {
		return "persist-offline"
	}
	return "fail"
}

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Sink         Sink // nil keeps the service local-only
	RemotePolicy RemotePolicy
	Logger       *slog.Logger
	EventBuffer  int
	Now          func() time.Time
}

// Service reconciles local and remote note identities on top of a Repository.
type Service struct {
	repo   Repository
	config ServiceConfig
	logger *slog.Logger
	ids    *IDGenerator
	events *broker
	done   chan struct{}

	saveMu sync.Mutex // serializes identity resolution and the local write
	seeded bool

	pushMu  sync.Mutex
	pushing map[int64]chan struct{} // notes with a remote write in flight

	mu     sync.RWMutex
	closed bool
}

// NewService creates a new Service. It performs no I/O.
func NewService(repo Repository, config ServiceConfig) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:    repo,
		config:  config,
		logger:  logger,
		ids:     NewIDGenerator(0, config.Now),
		events:  newBroker(config.EventBuffer),
		done:    make(chan struct{}),
		pushing: make(map[int64]chan struct{}),
	}
}

// Repository returns the underlying store.
func (s *Service) Repository() Repository { return s.repo }

func (s *Service) now() time.Time {
	return s.config.Now().UTC()
}

func (s *Service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save persists a note and returns the stored record.
//
// Workflow:
//  1. Validate the payload; a blank title fails before any I/O.
//  2. A note with neither ID nor RemoteID is new: when a sink is configured it
//     is written remotely first.
//  3. Resolve the local identity (existing ID, record owning RemoteID, or a
//     freshly minted ID) and stamp timestamps.
//  4. Upsert into the repository.
func (s *Service) Save(ctx context.Context, n Note) (Note, error) {
	if err := s.checkOpen(); err != nil {
		return Note{}, err
	}

	n = n.Clone()
	if err := n.normalize(); err != nil {
		return Note{}, err
	}

	var offline error
	fresh := false
	if n.ID == 0 && n.RemoteID == "" && s.config.Sink != nil {
		remoteID, err := s.createRemote(ctx, n)
		switch {
		case err == nil:
			n.RemoteID = remoteID
			fresh = true
		case s.config.RemotePolicy == PersistOffline:
			s.logger.Warn("remote write failed, saving offline", "title", n.Title, "error", err)
			offline = err
		default:
			return Note{}, err
		}
	}

	saved, err := s.commit(ctx, n, fresh)
	if err != nil {
		return Note{}, err
	}
	if offline != nil {
		return saved, &OfflineError{ID: saved.ID, Err: offline}
	}
	return saved, nil
}

// Push attaches a remote identity to a note that was saved offline.
// Notes that already carry one are returned unchanged. Concurrent pushes of
// the same note share one remote write.
func (s *Service) Push(ctx context.Context, id int64) (Note, error) {
	if err := s.checkOpen(); err != nil {
		return Note{}, err
	}
	if s.config.Sink == nil {
		return Note{}, &RemoteError{Err: errors.New("no remote sink configured")}
	}

	for {
		s.pushMu.Lock()
		wait, busy := s.pushing[id]
		if !busy {
			s.pushing[id] = make(chan struct{})
		}
		s.pushMu.Unlock()

		if !busy {
			return s.pushClaimed(ctx, id)
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return Note{}, ctx.Err()
		}
	}
}

// pushClaimed runs one push for id once the caller owns its in-flight slot.
func (s *Service) pushClaimed(ctx context.Context, id int64) (Note, error) {
	defer func() {
		s.pushMu.Lock()
		close(s.pushing[id])
		delete(s.pushing, id)
		s.pushMu.Unlock()
	}()

	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if n.RemoteID != "" {
		return n, nil
	}

	remoteID, err := s.createRemote(ctx, n)
	if err != nil {
		return Note{}, err
	}
	return s.attach(ctx, id, remoteID)
}

// attach records remoteID on the current version of note id. The remote write
// ran unlocked, so the note may have been edited or deleted meanwhile; only
// the remote identity is applied to what is stored now.
func (s *Service) attach(ctx context.Context, id int64, remoteID string) (Note, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	cur, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Warn("note deleted while pushing, remote record has no local note", "id", id, "remote_id", remoteID)
		return Note{}, fmt.Errorf("note %d: %w", id, err)
	case err != nil:
		return Note{}, &LocalWriteError{RemoteID: remoteID, Err: err}
	case cur.RemoteID == remoteID:
		return cur, nil
	case cur.RemoteID != "":
		s.logger.Warn("note gained a remote id while pushing, remote record has no local note", "id", id, "remote_id", remoteID, "kept", cur.RemoteID)
		return Note{}, fmt.Errorf("%w: note %d already has remote id %s", ErrValidation, id, cur.RemoteID)
	}

	cur.RemoteID = remoteID
	return s.write(ctx, cur, true)
}

// PushPending pushes every note without a remote identity. It returns how
// many were pushed and the joined errors of the ones that were not.
func (s *Service) PushPending(ctx context.Context) (int, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	pushed := 0
	var errs []error
	for _, n := range notes {
		if n.RemoteID != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Push(ctx, n.ID); err != nil {
			errs = append(errs, fmt.Errorf("note %d: %w", n.ID, err))
			continue
		}
		pushed++
	}
	return pushed, errors.Join(errs...)
}

// commit resolves identity and writes n locally.
func (s *Service) commit(ctx context.Context, n Note, fresh bool) (Note, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.write(ctx, n, fresh)
}

// write must be called with saveMu held. When fresh is set the note has just
// been accepted by the sink, so a failed local write is retried once with the
// same remote identity before giving up.
func (s *Service) write(ctx context.Context, n Note, fresh bool) (Note, error) {
	saved, created, err := s.upsert(ctx, n)
	if err != nil && fresh && errors.Is(err, ErrStorage) {
		s.logger.Warn("local write failed after remote write, retrying", "remote_id", n.RemoteID, "error", err)
		saved, created, err = s.upsert(ctx, n)
		if err != nil {
			return Note{}, &LocalWriteError{RemoteID: n.RemoteID, Err: err}
		}
	}
	if err != nil {
		return Note{}, err
	}

	eventType := EventModify
	if created {
		eventType = EventCreate
	}
	s.publish(Event{Type: eventType, ID: saved.ID, RemoteID: saved.RemoteID})
	return saved.Clone(), nil
}

// upsert must be called with saveMu held.
func (s *Service) upsert(ctx context.Context, n Note) (Note, bool, error) {
	var existing *Note

	switch {
	case n.ID != 0:
		// A supplied ID is an edit; deleted ids are never brought back.
		cur, err := s.repo.Get(ctx, n.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Note{}, false, fmt.Errorf("note %d: %w", n.ID, err)
			}
			return Note{}, false, err
		}
		existing = &cur
		if existing.RemoteID != "" {
			if n.RemoteID != "" && n.RemoteID != existing.RemoteID {
				return Note{}, false, fmt.Errorf("%w: note %d already has remote id %s", ErrValidation, n.ID, existing.RemoteID)
			}
			n.RemoteID = existing.RemoteID
		}
		if n.RemoteID != "" && existing.RemoteID == "" {
			owner, err := s.findByRemoteID(ctx, n.RemoteID)
			switch {
			case err == nil && owner.ID != n.ID:
				return Note{}, false, fmt.Errorf("%w: remote id %s belongs to note %d", ErrValidation, n.RemoteID, owner.ID)
			case err != nil && !errors.Is(err, ErrNotFound):
				return Note{}, false, err
			}
		}
		s.ids.Observe(n.ID)

	case n.RemoteID != "":
		cur, err := s.findByRemoteID(ctx, n.RemoteID)
		switch {
		case err == nil:
			existing = &cur
			n.ID = cur.ID
		case errors.Is(err, ErrNotFound):
			if n.ID, err = s.mint(ctx); err != nil {
				return Note{}, false, err
			}
		default:
			return Note{}, false, err
		}

	default:
		id, err := s.mint(ctx)
		if err != nil {
			return Note{}, false, err
		}
		n.ID = id
	}

	now := s.now()
	n.UpdatedAt = now
	if existing != nil {
		n.CreatedAt = existing.CreatedAt
	} else {
		n.CreatedAt = now
	}

	if err := s.repo.Save(ctx, n); err != nil {
		return Note{}, false, err
	}
	s.logger.Debug("note saved", "id", n.ID, "remote_id", n.RemoteID, "created", existing == nil)
	return n, existing == nil, nil
}

// mint must be called with saveMu held. The first call seeds the generator
// above every ID already in the store.
func (s *Service) mint(ctx context.Context) (int64, error) {
	if !s.seeded {
		notes, err := s.repo.List(ctx)
		if err != nil {
			return 0, err
		}
		for _, n := range notes {
			s.ids.Observe(n.ID)
		}
		s.seeded = true
	}
	return s.ids.Next(), nil
}

func (s *Service) findByRemoteID(ctx context.Context, remoteID string) (Note, error) {
	if idx, ok := s.repo.(RemoteIndex); ok {
		return idx.FindByRemoteID(ctx, remoteID)
	}
	notes, err := s.repo.List(ctx)
	if err != nil {
		return Note{}, err
	}
	for _, n := range notes {
		if n.RemoteID == remoteID {
			return n, nil
		}
	}
	return Note{}, ErrNotFound
}

func (s *Service) createRemote(ctx context.Context, n Note) (string, error) {
	remoteID, err := s.config.Sink.Create(ctx, n)
	if err != nil {
		if errors.Is(err, ErrRemote) {
			return "", err
		}
		return "", &RemoteError{Err: err}
	}
	if remoteID == "" {
		return "", &RemoteError{Err: errors.New("sink returned an empty note id")}
	}
	s.logger.Debug("note written remotely", "remote_id", remoteID)
	return remoteID, nil
}

// Get retrieves a note by ID.
func (s *Service) Get(ctx context.Context, id int64) (Note, error) {
	if err := s.checkOpen(); err != nil {
		return Note{}, err
	}
	return s.repo.Get(ctx, id)
}

// List retrieves all notes, newest first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Delete removes a note. Deleting an unknown ID succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(Event{Type: EventDelete, ID: id})
	return nil
}

// Query takes a snapshot of the store and projects it through q.
func (s *Service) Query(ctx context.Context, q Query) (View, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return View{}, err
	}
	return View{
		Notes:      Filter(notes, q),
		Categories: Categories(notes),
	}, nil
}

// Subscribe returns a channel receiving events for every durable change made
// through this Service. The channel is closed when ctx is done or the
// Service is closed.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	ch := s.events.subscribe()
	go func() {
		select {
		case <-ctx.Done():
			s.events.unsubscribe(ch)
		case <-s.done:
		}
	}()
	return ch
}

// Watch observes changes made to the store outside this process, if the
// repository supports it.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	return w.Watch(ctx, pattern)
}

func (s *Service) publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = s.config.Now().Unix()
	}
	if dropped := s.events.publish(e); dropped > 0 {
		s.logger.Warn("event dropped by slow subscribers", "event", e.String(), "subscribers", dropped)
	}
}

// Close releases the repository and ends every subscription.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.events.close()
	close(s.done)
	return s.repo.Close()
}

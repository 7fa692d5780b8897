package seswi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"seswi-go/internal/domain"
)

// SessionRepository is the system of record for saved sessions. Mutations
// are serialized so that check-then-write sequences cannot interleave.
type SessionRepository struct {
	mu     sync.Mutex
	store  SessionStore
	logger Logger
}

// NewSessionRepository creates a repository over store.
func NewSessionRepository(store SessionStore, logger Logger) *SessionRepository {
	return &SessionRepository{store: store, logger: logger}
}

// SessionGroup is every session saved for one exact domain string.
type SessionGroup struct {
	Domain   string     `json:"domain"`
	Sessions []*Session `json:"sessions"`
}

// DeleteDomainsResult reports a grouped delete.
type DeleteDomainsResult struct {
	DeletedDomains []string `json:"deletedDomains"`
	DeletedCount   int      `json:"deletedCount"`
	RemainingCount int      `json:"remainingCount"`
}

// MergeResult reports an additive merge of sessions into the store.
type MergeResult struct {
	RestoredCount int `json:"restoredCount"`
	SkippedCount  int `json:"skippedCount"`
	TotalCount    int `json:"totalCount"`
	// StoredCount is the number of valid sessions after the merge.
	StoredCount int `json:"storedCount"`
}

// GetAll returns every valid session in insertion order. Records that fail
// validation stay in storage but are not returned.
func (r *SessionRepository) GetAll(ctx context.Context) ([]*Session, error) {
	sessions, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("getAllSessions", err)
	}
	return sessions, nil
}

func (r *SessionRepository) loadValid(ctx context.Context) ([]*Session, error) {
	records, err := r.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing session records: %w", err)
	}

	sessions := make([]*Session, 0, len(records))
	hidden := 0
	for _, rec := range records {
		s, err := DecodeSession(rec.Data)
		if err != nil {
			hidden++
			continue
		}
		sessions = append(sessions, s)
	}
	if hidden > 0 {
		r.logger.Debug("hiding invalid session records", "count", hidden)
	}
	return sessions, nil
}

// Get returns the first valid session with timestamp, or nil if none exists.
func (r *SessionRepository) Get(ctx context.Context, timestamp int64) (*Session, error) {
	sessions, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("getSession", err)
	}
	for _, s := range sessions {
		if s.Timestamp == timestamp {
			return s, nil
		}
	}
	return nil, nil
}

// Save appends a new session. It fails with ErrDuplicateName when a session
// with the same domain and case-insensitive name already exists.
func (r *SessionRepository) Save(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return opError("saveSession", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.loadValid(ctx)
	if err != nil {
		return opError("saveSession", err)
	}
	key := s.NameKey()
	for _, e := range existing {
		if e.NameKey() == key {
			return opError("saveSession", ErrDuplicateName)
		}
	}

	rec, err := newRecord(s)
	if err != nil {
		return opError("saveSession", err)
	}
	if err := r.store.InsertRecord(ctx, rec); err != nil {
		return opError("saveSession", err)
	}

	r.logger.Info("session saved", "domain", s.Domain, "name", s.Name, "timestamp", s.Timestamp)
	return nil
}

// Update replaces the session sharing s.Timestamp. Updating a timestamp that
// does not exist is a no-op.
func (r *SessionRepository) Update(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return opError("updateSession", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := newRecord(s)
	if err != nil {
		return opError("updateSession", err)
	}
	found, err := r.store.ReplaceRecord(ctx, rec)
	if err != nil {
		return opError("updateSession", err)
	}
	if !found {
		r.logger.Debug("update matched no session", "timestamp", s.Timestamp)
	}
	return nil
}

// Rename changes only the name of the session with timestamp.
func (r *SessionRepository) Rename(ctx context.Context, timestamp int64, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, opError("renameSession", kindError(ErrValidation, "name required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("renameSession", err)
	}

	var target *Session
	for _, s := range sessions {
		if s.Timestamp == timestamp && target == nil {
			target = s
		}
	}
	if target == nil {
		return nil, opError("renameSession", kindError(ErrNotFound, "no session with timestamp %d", timestamp))
	}

	key := NameKey(target.Domain, name)
	for _, s := range sessions {
		if s.Timestamp != timestamp && s.NameKey() == key {
			return nil, opError("renameSession", ErrDuplicateName)
		}
	}

	target.Name = name
	rec, err := newRecord(target)
	if err != nil {
		return nil, opError("renameSession", err)
	}
	if _, err := r.store.ReplaceRecord(ctx, rec); err != nil {
		return nil, opError("renameSession", err)
	}
	return target, nil
}

// Delete removes the first session with timestamp. Deleting a missing
// timestamp is a no-op.
func (r *SessionRepository) Delete(ctx context.Context, timestamp int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, err := r.store.DeleteRecord(ctx, timestamp)
	if err != nil {
		return opError("deleteSession", err)
	}
	if found {
		r.logger.Info("session deleted", "timestamp", timestamp)
	}
	return nil
}

// DeleteByDomains removes every session whose domain is in domains.
func (r *SessionRepository) DeleteByDomains(ctx context.Context, domains []string) (*DeleteDomainsResult, error) {
	if len(domains) == 0 {
		return nil, opError("deleteGroupedSessions", kindError(ErrInvalidInput, "no domains provided"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.store.DeleteDomains(ctx, domains)
	if err != nil {
		return nil, opError("deleteGroupedSessions", err)
	}
	remaining, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("deleteGroupedSessions", err)
	}

	r.logger.Info("sessions deleted by domain", "domains", len(domains), "deleted", deleted)
	return &DeleteDomainsResult{
		DeletedDomains: domains,
		DeletedCount:   deleted,
		RemainingCount: len(remaining),
	}, nil
}

// GetByDomain returns the sessions usable on currentDomain, newest first.
func (r *SessionRepository) GetByDomain(ctx context.Context, currentDomain string) ([]*Session, error) {
	sessions, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("getCurrentDomainSessions", err)
	}

	var matched []*Session
	for _, s := range sessions {
		if domain.IsDomainMatch(s.Domain, currentDomain) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})
	return matched, nil
}

// GetGrouped partitions sessions by exact domain. Sessions within a group are
// ordered by index; groups are ordered by their newest session, newest first.
func (r *SessionRepository) GetGrouped(ctx context.Context) ([]*SessionGroup, error) {
	sessions, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("getAllSessionsGrouped", err)
	}
	return groupSessions(sessions), nil
}

func groupSessions(sessions []*Session) []*SessionGroup {
	byDomain := make(map[string]*SessionGroup)
	latest := make(map[string]int64)
	var groups []*SessionGroup
	for _, s := range sessions {
		g, ok := byDomain[s.Domain]
		if !ok {
			g = &SessionGroup{Domain: s.Domain}
			byDomain[s.Domain] = g
			groups = append(groups, g)
		}
		g.Sessions = append(g.Sessions, s)
		if !ok || s.Timestamp > latest[s.Domain] {
			latest[s.Domain] = s.Timestamp
		}
	}

	for _, g := range groups {
		sort.SliceStable(g.Sessions, func(i, j int) bool {
			return g.Sessions[i].Index < g.Sessions[j].Index
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return latest[groups[i].Domain] > latest[groups[j].Domain]
	})
	return groups
}

// Merge adds sessions to the store without deleting anything. Sessions whose
// timestamp is already stored, or that fail validation, are skipped.
func (r *SessionRepository) Merge(ctx context.Context, incoming []*Session) (*MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.loadValid(ctx)
	if err != nil {
		return nil, opError("restoreSessions", err)
	}
	seen := make(map[int64]bool, len(existing)+len(incoming))
	for _, s := range existing {
		seen[s.Timestamp] = true
	}

	var recs []SessionRecord
	for _, s := range incoming {
		if s == nil || s.Validate() != nil || seen[s.Timestamp] {
			continue
		}
		rec, err := newRecord(s)
		if err != nil {
			return nil, opError("restoreSessions", err)
		}
		seen[s.Timestamp] = true
		recs = append(recs, rec)
	}

	if len(recs) > 0 {
		if err := r.store.InsertRecords(ctx, recs); err != nil {
			return nil, opError("restoreSessions", err)
		}
	}

	r.logger.Info("sessions merged", "restored", len(recs), "total", len(incoming))
	return &MergeResult{
		RestoredCount: len(recs),
		SkippedCount:  len(incoming) - len(recs),
		TotalCount:    len(incoming),
		StoredCount:   len(existing) + len(recs),
	}, nil
}

func newRecord(s *Session) (SessionRecord, error) {
	data, err := EncodeSession(s)
	if err != nil {
		return SessionRecord{}, err
	}
	return SessionRecord{
		Timestamp: s.Timestamp,
		Domain:    s.Domain,
		NameKey:   s.NameKey(),
		Valid:     s.Validate() == nil,
		Data:      data,
	}, nil
}

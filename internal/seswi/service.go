package seswi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"seswi-go/internal/domain"
)

// CookieFilter reports cookie names that are never captured.
type CookieFilter interface {
	ShouldIgnore(name string) bool
}

// ServiceOptions holds the optional knobs of a Service.
type ServiceOptions struct {
	TabInfoTTL   time.Duration
	CookieFilter CookieFilter
	StoreID      string
}

// Service drives the session operations against one browser.
type Service struct {
	repo    *SessionRepository
	capture *SessionCapture
	cookies *CookieSync
	tabs    *TabInfoCache
	cleaner *DataCleaner
	codec   *BackupCodec
	browser Browser
	filter  CookieFilter
	logger  Logger
	clock   Clock
}

// NewService wires a Service.
func NewService(store SessionStore, browser Browser, cipher Cipher, normalizer domain.Normalizer, logger Logger, clock Clock, opts ServiceOptions) *Service {
	repo := NewSessionRepository(store, logger)
	cookies := NewCookieSync(browser.Cookies, logger).WithStoreID(opts.StoreID)
	tabs := NewTabInfoCache(browser.Tabs, normalizer, clock, opts.TabInfoTTL)
	return &Service{
		repo:    repo,
		capture: NewSessionCapture(repo, normalizer, clock),
		cookies: cookies,
		tabs:    tabs,
		cleaner: NewDataCleaner(tabs, cookies, browser, logger),
		codec:   NewBackupCodec(cipher, clock),
		browser: browser,
		filter:  opts.CookieFilter,
		logger:  logger,
		clock:   clock,
	}
}

func (s *Service) Repository() *SessionRepository { return s.repo }
func (s *Service) Codec() *BackupCodec             { return s.codec }
func (s *Service) Cookies() *CookieSync            { return s.cookies }

// NewRestoreFlow starts an interactive backup import.
func (s *Service) NewRestoreFlow() *RestoreFlow {
	return NewRestoreFlow(s.codec, s.repo, s.logger)
}

// CurrentTab returns the active tab's domain, possibly from cache.
func (s *Service) CurrentTab(ctx context.Context) (*TabInfo, error) {
	return s.tabs.Current(ctx)
}

// Snapshot is the live state of one site in the active tab.
type Snapshot struct {
	Tab            TabInfo           `json:"tab"`
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// Snapshot reads cookies and both storage areas of the active tab
// concurrently. A storage read failure leaves that area empty.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	info, err := s.siteTab(ctx, "getBrowserSessionSnapshot")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Tab: *info}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cookies, err := s.cookies.GetForDomain(gctx, info.Domain)
		if err != nil {
			return err
		}
		snap.Cookies = s.filterCookies(cookies)
		return nil
	})
	g.Go(func() error {
		snap.LocalStorage = s.readStorage(gctx, info.TabID, AreaLocal)
		return nil
	})
	g.Go(func() error {
		snap.SessionStorage = s.readStorage(gctx, info.TabID, AreaSession)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, opError("getBrowserSessionSnapshot", err)
	}
	return snap, nil
}

func (s *Service) readStorage(ctx context.Context, tabID string, area StorageArea) map[string]string {
	data, err := s.browser.Storage.ReadStorage(ctx, tabID, area)
	if err != nil {
		s.logger.Debug("storage read failed", "area", string(area), "error", err)
		return map[string]string{}
	}
	if data == nil {
		return map[string]string{}
	}
	return data
}

func (s *Service) filterCookies(cookies []Cookie) []Cookie {
	if s.filter == nil {
		return cookies
	}
	kept := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if s.filter.ShouldIgnore(c.Name) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// siteTab returns the active tab, rejecting browser pages and hosts without
// a domain.
func (s *Service) siteTab(ctx context.Context, op string) (*TabInfo, error) {
	info, err := s.tabs.Current(ctx)
	if err != nil {
		return nil, opError(op, err)
	}
	if info.Domain == BrowserPageDomain || info.Domain == UnknownDomain {
		return nil, opError(op, kindError(ErrInvalidInput, "tab %q has no site data", info.URL))
	}
	return info, nil
}

// SaveResult is returned by SaveCurrent. Warning is set for domains whose
// sign-in state spans several sites.
type SaveResult struct {
	Session *Session `json:"session"`
	Warning string   `json:"warning,omitempty"`
}

// SaveCurrent captures the active tab as a new session named name.
func (s *Service) SaveCurrent(ctx context.Context, name string) (*SaveResult, error) {
	sess, err := s.captureCurrent(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}

	res := &SaveResult{Session: sess}
	if domain.IsSensitiveAuthDomain(sess.Domain) {
		res.Warning = domain.SensitiveDomainWarning(sess.Domain)
	}
	s.logger.Info("session saved", "domain", sess.Domain, "name", sess.Name, "timestamp", sess.Timestamp, "cookies", len(sess.Cookies))
	return res, nil
}

func (s *Service) captureCurrent(ctx context.Context, name string) (*Session, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.capture.CreateFromCurrentTab(ctx, name, Tab{ID: snap.Tab.TabID, URL: snap.Tab.URL},
		snap.Cookies, snap.LocalStorage, snap.SessionStorage)
}

// ReplaceWithCurrent overwrites the session at timestamp with a fresh capture
// of the active tab under the same name. The fresh capture gets a new
// timestamp and index.
func (s *Service) ReplaceWithCurrent(ctx context.Context, timestamp int64) (*Session, error) {
	old, err := s.repo.Get(ctx, timestamp)
	if err != nil {
		return nil, opError("replaceSession", err)
	}
	if old == nil {
		return nil, opError("replaceSession", kindError(ErrNotFound, "session %d", timestamp))
	}

	fresh, err := s.captureCurrent(ctx, old.Name)
	if err != nil {
		return nil, err
	}
	if fresh.Domain != old.Domain {
		return nil, opError("replaceSession", kindError(ErrInvalidInput, "active tab is on %s, session belongs to %s", fresh.Domain, old.Domain))
	}
	if err := s.repo.Delete(ctx, timestamp); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, fresh); err != nil {
		return nil, err
	}
	s.logger.Info("session replaced", "domain", fresh.Domain, "old_timestamp", timestamp, "timestamp", fresh.Timestamp)
	return fresh, nil
}

// RestoreSessionResult reports a session switch.
type RestoreSessionResult struct {
	Session         *Session              `json:"session"`
	Cookies         *RestoreCookiesResult `json:"cookies,omitempty"`
	StorageRestored bool                  `json:"storageRestored"`
	StorageSkipped  bool                  `json:"storageSkipped"`
	Reloaded        bool                  `json:"reloaded"`
}

// RestoreSession switches the browser to the saved session: cookies first,
// then web storage of the active tab, then a reload. Storage is only written
// when the active tab belongs to the session's domain.
func (s *Service) RestoreSession(ctx context.Context, timestamp int64) (*RestoreSessionResult, error) {
	sess, err := s.repo.Get(ctx, timestamp)
	if err != nil {
		return nil, opError("restoreBrowserSession", err)
	}
	if sess == nil {
		return nil, opError("restoreBrowserSession", kindError(ErrNotFound, "session %d", timestamp))
	}
	res := &RestoreSessionResult{Session: sess}

	if len(sess.Cookies) > 0 {
		cr, err := s.cookies.Restore(ctx, sess)
		if err != nil {
			return nil, opError("restoreBrowserSession", err)
		}
		res.Cookies = cr
	}

	info, err := s.tabs.Current(ctx)
	if err != nil || !domain.IsDomainMatch(sess.Domain, info.Domain) {
		res.StorageSkipped = true
		s.logger.Debug("active tab does not match session, storage not restored", "domain", sess.Domain)
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.browser.Storage.WriteStorage(gctx, info.TabID, AreaLocal, sess.LocalStorage)
	})
	g.Go(func() error {
		return s.browser.Storage.WriteStorage(gctx, info.TabID, AreaSession, sess.SessionStorage)
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("restoring storage failed", "domain", sess.Domain, "error", err)
	} else {
		res.StorageRestored = true
	}

	if err := s.browser.Reloader.Reload(ctx, info.TabID); err != nil {
		s.logger.Warn("reloading tab failed", "tab", info.TabID, "error", err)
	} else {
		res.Reloaded = true
	}

	s.logger.Info("session restored", "domain", sess.Domain, "name", sess.Name, "timestamp", sess.Timestamp)
	return res, nil
}

// SessionsForCurrentTab lists the sessions that apply to the active tab.
func (s *Service) SessionsForCurrentTab(ctx context.Context) (*TabInfo, []*Session, error) {
	info, err := s.tabs.Current(ctx)
	if err != nil {
		return nil, nil, opError("getSessionsByDomain", err)
	}
	sessions, err := s.repo.GetByDomain(ctx, info.Domain)
	if err != nil {
		return nil, nil, err
	}
	return info, sessions, nil
}

// CleanCurrentTab wipes the active site's cookies, history and storage.
func (s *Service) CleanCurrentTab(ctx context.Context) (*CleanResult, error) {
	return s.cleaner.CleanCurrentTab(ctx)
}

// ExportOptions selects what Export writes. With no timestamps every session
// is exported. A password switches to the encrypted format.
type ExportOptions struct {
	Timestamps []int64
	Password   string
	Single     bool
	Name       string
}

// ExportResult is an encoded backup ready to be written.
type ExportResult struct {
	Data      []byte `json:"-"`
	FileName  string `json:"fileName"`
	Count     int    `json:"count"`
	Encrypted bool   `json:"encrypted"`
}

// Export encodes sessions into a backup file.
func (s *Service) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	sessions, err := s.selectSessions(ctx, opts.Timestamps)
	if err != nil {
		return nil, opError("exportSessions", err)
	}
	if len(sessions) == 0 {
		return nil, opError("exportSessions", kindError(ErrNoData, "no sessions to export"))
	}

	res := &ExportResult{Count: len(sessions), Encrypted: opts.Password != ""}
	switch {
	case opts.Single:
		if len(sessions) != 1 {
			return nil, opError("exportSessions", kindError(ErrValidation, "single export needs exactly one session, got %d", len(sessions)))
		}
		if opts.Password == "" {
			res.Data, err = s.codec.EncodePlain(sessions)
		} else {
			res.Data, err = s.codec.EncodeOWISingle(sessions[0], opts.Password)
		}
	case opts.Password != "":
		res.Data, err = s.codec.EncodeOWI(sessions, opts.Password)
	case len(opts.Timestamps) == 0:
		res.Data, err = s.codec.EncodeFullBackup(sessions)
	default:
		res.Data, err = s.codec.EncodePlain(sessions)
	}
	if err != nil {
		return nil, opError("exportSessions", err)
	}

	res.FileName = exportFileName(opts, sessions, s.clock.Now())
	s.logger.Info("sessions exported", "count", res.Count, "encrypted", res.Encrypted, "file", res.FileName)
	return res, nil
}

func (s *Service) selectSessions(ctx context.Context, timestamps []int64) ([]*Session, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return all, nil
	}
	byTS := make(map[int64]*Session, len(all))
	for _, sess := range all {
		if _, ok := byTS[sess.Timestamp]; !ok {
			byTS[sess.Timestamp] = sess
		}
	}
	out := make([]*Session, 0, len(timestamps))
	for _, ts := range timestamps {
		sess, ok := byTS[ts]
		if !ok {
			return nil, kindError(ErrNotFound, "session %d", ts)
		}
		out = append(out, sess)
	}
	return out, nil
}

func exportFileName(opts ExportOptions, sessions []*Session, now time.Time) string {
	ext := ExtPlain
	if opts.Password != "" {
		ext = ExtOWI
	}
	if opts.Name != "" {
		return opts.Name + ext
	}
	if opts.Single {
		return fmt.Sprintf("%s-%d%s", sessions[0].Domain, sessions[0].Timestamp, ext)
	}
	return fmt.Sprintf("sessions-backup-%s%s", now.UTC().Format("2006-01-02"), ext)
}

// ImportOptions controls a non-interactive import.
type ImportOptions struct {
	Password          string
	IncludeDuplicates bool
}

// Import runs a backup file through the restore flow without user
// interaction. Duplicates are deselected unless IncludeDuplicates is set.
func (s *Service) Import(ctx context.Context, name string, data []byte, opts ImportOptions) (*ImportResult, error) {
	flow := s.NewRestoreFlow()
	if err := flow.SelectFile(ctx, name, data); err != nil {
		return nil, err
	}
	if flow.State() == StatePendingPassword {
		if err := flow.Verify(ctx, opts.Password); err != nil {
			return nil, err
		}
	}
	if opts.IncludeDuplicates {
		if err := flow.SelectAll(); err != nil {
			return nil, err
		}
	}

	items := flow.Items()
	selected := 0
	for _, it := range items {
		if it.Selected {
			selected++
		}
	}
	if selected == 0 {
		s.logger.Info("backup contains only duplicates, nothing imported", "file", name, "total", len(items))
		return &ImportResult{SkippedCount: len(items), TotalCount: len(items)}, nil
	}
	return flow.Restore(ctx)
}

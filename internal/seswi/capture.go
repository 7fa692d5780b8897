package seswi

import (
	"context"
	"fmt"
	"strings"

	"seswi-go/internal/domain"
)

// SessionCapture builds new session records from the current tab.
type SessionCapture struct {
	repo       *SessionRepository
	normalizer domain.Normalizer
	clock      Clock
}

// NewSessionCapture creates a SessionCapture that numbers sessions against repo.
func NewSessionCapture(repo *SessionRepository, normalizer domain.Normalizer, clock Clock) *SessionCapture {
	return &SessionCapture{repo: repo, normalizer: normalizer, clock: clock}
}

// CreateFromCurrentTab builds, but does not save, a session named name from
// the tab's cookies and storage snapshots.
func (c *SessionCapture) CreateFromCurrentTab(ctx context.Context, name string, tab Tab, cookies []Cookie, local, session map[string]string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, opError("createSession", kindError(ErrValidation, "name required"))
	}
	if len(cookies) == 0 && len(local) == 0 && len(session) == 0 {
		return nil, opError("createSession", kindError(ErrNoData, "no cookies or storage found"))
	}

	d, err := c.normalizer.BaseDomain(tab.URL)
	if err != nil {
		return nil, opError("createSession", kindError(ErrInvalidInput, "tab URL: %v", err))
	}

	existing, err := c.repo.GetAll(ctx)
	if err != nil {
		return nil, opError("createSession", err)
	}
	maxIndex := 0
	for _, s := range existing {
		if s.Domain == d && s.Index > maxIndex {
			maxIndex = s.Index
		}
	}

	if cookies == nil {
		cookies = []Cookie{}
	}
	if local == nil {
		local = map[string]string{}
	}
	if session == nil {
		session = map[string]string{}
	}

	ts := epochMillis(c.clock.Now())
	return &Session{
		ID:             fmt.Sprintf("%s:%d", d, ts),
		Name:           name,
		Domain:         d,
		OriginalURL:    tab.URL,
		Cookies:        cookies,
		LocalStorage:   local,
		SessionStorage: session,
		Timestamp:      ts,
		Index:          maxIndex + 1,
	}, nil
}

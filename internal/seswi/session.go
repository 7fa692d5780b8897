package seswi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Cookie mirrors the browser's cookie record. ExpirationDate is in epoch
// seconds and is nil for session cookies.
type Cookie struct {
	Domain         string   `json:"domain"`
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	SameSite       string   `json:"sameSite,omitempty"`
	Session        bool     `json:"session"`
	ExpirationDate *float64 `json:"expirationDate,omitempty"`
	StoreID        string   `json:"storeId,omitempty"`
	HostOnly       bool     `json:"hostOnly,omitempty"`
}

// Host returns the cookie domain without its leading dot.
func (c Cookie) Host() string {
	return strings.TrimPrefix(c.Domain, ".")
}

// URL returns the URL the browser API needs to address this cookie.
func (c Cookie) URL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return scheme + "://" + c.Host() + c.Path
}

// Session is a saved snapshot of a site's cookies and web storage.
// Timestamp is the creation time in epoch milliseconds and doubles as the
// handle for update and delete.
type Session struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Domain         string            `json:"domain"`
	OriginalURL    string            `json:"originalUrl"`
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
	Timestamp      int64             `json:"timestamp"`
	Index          int               `json:"index"`
}

// NameKey is the per-store uniqueness key: domain plus lowercased name.
func (s *Session) NameKey() string {
	return NameKey(s.Domain, s.Name)
}

// NameKey builds the uniqueness key for a domain and session name.
func NameKey(domain, name string) string {
	return domain + "\x00" + strings.ToLower(name)
}

// Validate checks the fields every stored session must carry.
func (s *Session) Validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Domain == "" {
		missing = append(missing, "domain")
	}
	if s.Cookies == nil {
		missing = append(missing, "cookies")
	}
	if s.Timestamp == 0 {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return kindError(ErrValidation, "missing required session fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	if s.Cookies != nil {
		c.Cookies = make([]Cookie, len(s.Cookies))
		for i, ck := range s.Cookies {
			if ck.ExpirationDate != nil {
				exp := *ck.ExpirationDate
				ck.ExpirationDate = &exp
			}
			c.Cookies[i] = ck
		}
	}
	c.LocalStorage = cloneMap(s.LocalStorage)
	c.SessionStorage = cloneMap(s.SessionStorage)
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recordShape is used to check field types before decoding a stored or
// imported record, because a strict decode would reject records that should
// only be hidden.
type recordShape struct {
	Name      json.RawMessage `json:"name"`
	Domain    json.RawMessage `json:"domain"`
	Cookies   json.RawMessage `json:"cookies"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeSession parses one session record. Records that are missing a
// required field or carry it with the wrong type fail with ErrValidation.
func DecodeSession(raw []byte) (*Session, error) {
	var shape recordShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, kindError(ErrValidation, "session is not an object")
	}

	var name, dom string
	if json.Unmarshal(shape.Name, &name) != nil || json.Unmarshal(shape.Domain, &dom) != nil {
		return nil, kindError(ErrValidation, "name and domain must be strings")
	}
	if !isJSONArray(shape.Cookies) {
		return nil, kindError(ErrValidation, "cookies must be an array")
	}
	var ts json.Number
	if err := json.Unmarshal(shape.Timestamp, &ts); err != nil {
		return nil, kindError(ErrValidation, "timestamp must be a number")
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, kindError(ErrValidation, "decoding session: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeSession serializes s for storage.
func EncodeSession(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

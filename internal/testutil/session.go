package testutil

import (
	"fmt"

	"seswi-go/internal/seswi"
)

// NewSession builds a valid session with one cookie for domain.
func NewSession(domain, name string, timestamp int64) *seswi.Session {
	return &seswi.Session{
		ID:          fmt.Sprintf("%s:%d", domain, timestamp),
		Name:        name,
		Domain:      domain,
		OriginalURL: "https://" + domain + "/",
		Cookies: []seswi.Cookie{
			{Domain: "." + domain, Name: "sid", Value: name, Path: "/", Secure: true, Session: true},
		},
		LocalStorage:   map[string]string{"user": name},
		SessionStorage: map[string]string{},
		Timestamp:      timestamp,
		Index:          1,
	}
}

package cookiejar

import (
	"context"
	"sync"

	"seswi-go/internal/seswi"
)

// MemoryJar implements seswi.CookieStore in memory.
type MemoryJar struct {
	mu      sync.RWMutex
	cookies []seswi.Cookie
}

var _ seswi.CookieStore = (*MemoryJar)(nil)

// NewMemoryJar creates a jar holding cookies.
func NewMemoryJar(cookies ...seswi.Cookie) *MemoryJar {
	return &MemoryJar{cookies: append([]seswi.Cookie(nil), cookies...)}
}

func (j *MemoryJar) GetAll(ctx context.Context, storeID string) ([]seswi.Cookie, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]seswi.Cookie, 0, len(j.cookies))
	for _, ck := range j.cookies {
		if storeID != "" && ck.StoreID != "" && ck.StoreID != storeID {
			continue
		}
		out = append(out, ck)
	}
	return out, nil
}

func (j *MemoryJar) Remove(ctx context.Context, ref seswi.CookieRef) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	list, _, err := removeRef(j.cookies, ref)
	if err != nil {
		return err
	}
	j.cookies = list
	return nil
}

func (j *MemoryJar) Set(ctx context.Context, details seswi.CookieDetails) error {
	ck, err := fromDetails(details)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = upsert(j.cookies, ck)
	return nil
}

// Len returns the number of stored cookies.
func (j *MemoryJar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.cookies)
}

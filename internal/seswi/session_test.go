package seswi_test

import (
	"errors"
	"testing"

	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

func TestDecodeSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: `{"name":"work","domain":"example.com","cookies":[],"timestamp":1705314600000}`},
		{name: "extra fields kept", raw: `{"name":"w","domain":"a.com","cookies":[],"timestamp":1,"future":true}`},
		{name: "missing name", raw: `{"domain":"a.com","cookies":[],"timestamp":1}`, wantErr: true},
		{name: "empty domain", raw: `{"name":"w","domain":"","cookies":[],"timestamp":1}`, wantErr: true},
		{name: "name not a string", raw: `{"name":5,"domain":"a.com","cookies":[],"timestamp":1}`, wantErr: true},
		{name: "cookies not an array", raw: `{"name":"w","domain":"a.com","cookies":{},"timestamp":1}`, wantErr: true},
		{name: "cookies missing", raw: `{"name":"w","domain":"a.com","timestamp":1}`, wantErr: true},
		{name: "timestamp as string", raw: `{"name":"w","domain":"a.com","cookies":[],"timestamp":"1"}`, wantErr: true},
		{name: "not an object", raw: `[1,2]`, wantErr: true},
		{name: "not json", raw: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := seswi.DecodeSession([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSession() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, seswi.ErrValidation) {
				t.Errorf("DecodeSession() error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && s == nil {
				t.Error("DecodeSession() returned nil session")
			}
		})
	}
}

func TestSession_NameKeyIgnoresCase(t *testing.T) {
	t.Parallel()

	a := testutil.NewSession("example.com", "Work", 1)
	b := testutil.NewSession("example.com", "wORK", 2)
	c := testutil.NewSession("other.com", "Work", 3)

	if a.NameKey() != b.NameKey() {
		t.Errorf("NameKey() differs for names differing only in case: %q vs %q", a.NameKey(), b.NameKey())
	}
	if a.NameKey() == c.NameKey() {
		t.Error("NameKey() equal across domains")
	}
}

func TestSession_Clone(t *testing.T) {
	t.Parallel()

	exp := 100.0
	s := testutil.NewSession("example.com", "work", 1)
	s.Cookies[0].ExpirationDate = &exp

	c := s.Clone()
	c.Cookies[0].Value = "changed"
	*c.Cookies[0].ExpirationDate = 5
	c.LocalStorage["user"] = "changed"

	if s.Cookies[0].Value == "changed" || *s.Cookies[0].ExpirationDate != 100 || s.LocalStorage["user"] == "changed" {
		t.Error("Clone() shares state with the original")
	}
}

func TestEncodeDecodeSession(t *testing.T) {
	t.Parallel()

	s := testutil.NewSession("example.com", "work", 1705314600000)
	data, err := seswi.EncodeSession(s)
	if err != nil {
		t.Fatalf("EncodeSession() error = %v", err)
	}
	got, err := seswi.DecodeSession(data)
	if err != nil {
		t.Fatalf("DecodeSession() error = %v", err)
	}
	if got.Timestamp != s.Timestamp || got.Name != s.Name || len(got.Cookies) != 1 || got.OriginalURL != s.OriginalURL {
		t.Errorf("DecodeSession() = %+v, want %+v", got, s)
	}
}

func TestErrorContext(t *testing.T) {
	t.Parallel()

	repo := seswi.NewSessionRepository(testutil.NewTestDatabase(t), seswi.NewNopLogger())
	_, err := repo.DeleteByDomains(t.Context(), nil)
	if !errors.Is(err, seswi.ErrInvalidInput) {
		t.Fatalf("DeleteByDomains(nil) error = %v, want ErrInvalidInput", err)
	}
	if got := seswi.ErrorContext(err); got != "deleteGroupedSessions" {
		t.Errorf("ErrorContext() = %q, want %q", got, "deleteGroupedSessions")
	}
	if got := seswi.ErrorContext(errors.New("plain")); got != "" {
		t.Errorf("ErrorContext(plain) = %q, want empty", got)
	}
}

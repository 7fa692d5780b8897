package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"seswi-go/internal/seswi"
)

// LegacyStore holds both the old key-value slots and the session rows they
// migrate into.
type LegacyStore interface {
	seswi.KeyValueStore
	seswi.SessionStore
}

// Host answers extension requests through a seswi.Service. The legacy store
// is only needed for storage.migrate and may be nil.
type Host struct {
	service *seswi.Service
	legacy  LegacyStore
	logger  seswi.Logger
	stdin   io.Reader
	stdout  io.Writer
}

// NewHost creates a host reading os.Stdin and writing os.Stdout.
func NewHost(service *seswi.Service, legacy LegacyStore, logger seswi.Logger) *Host {
	return NewHostWithIO(service, legacy, logger, os.Stdin, os.Stdout)
}

// NewHostWithIO creates a host over the given streams.
func NewHostWithIO(service *seswi.Service, legacy LegacyStore, logger seswi.Logger, stdin io.Reader, stdout io.Writer) *Host {
	return &Host{service: service, legacy: legacy, logger: logger, stdin: stdin, stdout: stdout}
}

// Run handles requests until stdin reaches EOF or ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := h.processOneMessage(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *Host) processOneMessage(ctx context.Context) error {
	data, err := ReadMessage(h.stdin)
	if err != nil {
		return err
	}

	req, err := ParseRequest(data)
	if err != nil {
		h.logger.Warn("invalid native request", "error", err)
		return WriteMessage(h.stdout, MakeErrorResponse(0, fmt.Errorf("%w: invalid request: %v", seswi.ErrInvalidInput, err)))
	}

	resp := h.HandleRequest(ctx, req)
	if len(resp) > MaxMessageSize {
		h.logger.Warn("native response too large", "method", req.Method, "size", len(resp))
		resp = MakeErrorResponse(req.ID, fmt.Errorf("%w: response of %d bytes exceeds the %d byte message limit", seswi.ErrInvalidInput, len(resp), MaxMessageSize))
	}
	return WriteMessage(h.stdout, resp)
}

// Method parameters.
type (
	timestampParams struct {
		Timestamp int64 `json:"timestamp"`
	}
	nameParams struct {
		Name string `json:"name"`
	}
	domainParams struct {
		Domain string `json:"domain"`
	}
	renameParams struct {
		Timestamp int64  `json:"timestamp"`
		Name      string `json:"name"`
	}
	domainsParams struct {
		Domains []string `json:"domains"`
	}
	exportParams struct {
		Timestamps []int64 `json:"timestamps,omitempty"`
		Password   string  `json:"password,omitempty"`
		Single     bool    `json:"single,omitempty"`
		Name       string  `json:"name,omitempty"`
	}
	importParams struct {
		FileName          string `json:"fileName"`
		Data              string `json:"data"`
		Password          string `json:"password,omitempty"`
		IncludeDuplicates bool   `json:"includeDuplicates,omitempty"`
	}
)

// ExportData is the data of a backup.export response.
type ExportData struct {
	FileName  string `json:"fileName"`
	Count     int    `json:"count"`
	Encrypted bool   `json:"encrypted"`
	Data      string `json:"data"`
}

// HandleRequest runs req and returns the encoded response.
func (h *Host) HandleRequest(ctx context.Context, req *Request) []byte {
	data, err := h.dispatch(ctx, req)
	if err != nil {
		h.logger.Info("native request failed", "method", req.Method, "id", req.ID, "error", err)
		return MakeErrorResponse(req.ID, err)
	}
	return MakeSuccessResponse(req.ID, data)
}

func (h *Host) dispatch(ctx context.Context, req *Request) (any, error) {
	repo := h.service.Repository()

	switch req.Method {
	case "tab.current":
		return h.service.CurrentTab(ctx)

	case "tab.snapshot":
		return h.service.Snapshot(ctx)

	case "sessions.list":
		return repo.GetAll(ctx)

	case "sessions.forDomain":
		var p domainParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		if p.Domain == "" {
			_, sessions, err := h.service.SessionsForCurrentTab(ctx)
			return sessions, err
		}
		return repo.GetByDomain(ctx, p.Domain)

	case "sessions.grouped":
		return repo.GetGrouped(ctx)

	case "sessions.update":
		var s seswi.Session
		if err := decode(req, &s); err != nil {
			return nil, err
		}
		if err := repo.Update(ctx, &s); err != nil {
			return nil, err
		}
		return &s, nil

	case "sessions.rename":
		var p renameParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return repo.Rename(ctx, p.Timestamp, p.Name)

	case "sessions.delete":
		var p timestampParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, p.Timestamp); err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": p.Timestamp}, nil

	case "sessions.deleteDomains":
		var p domainsParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return repo.DeleteByDomains(ctx, p.Domains)

	case "session.save":
		var p nameParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return h.service.SaveCurrent(ctx, p.Name)

	case "session.replace":
		var p timestampParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return h.service.ReplaceWithCurrent(ctx, p.Timestamp)

	case "session.restore":
		var p timestampParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return h.service.RestoreSession(ctx, p.Timestamp)

	case "site.clean":
		return h.service.CleanCurrentTab(ctx)

	case "backup.export":
		var p exportParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		res, err := h.service.Export(ctx, seswi.ExportOptions{
			Timestamps: p.Timestamps,
			Password:   p.Password,
			Single:     p.Single,
			Name:       p.Name,
		})
		if err != nil {
			return nil, err
		}
		return &ExportData{FileName: res.FileName, Count: res.Count, Encrypted: res.Encrypted, Data: string(res.Data)}, nil

	case "backup.import":
		var p importParams
		if err := decode(req, &p); err != nil {
			return nil, err
		}
		return h.service.Import(ctx, p.FileName, []byte(p.Data), seswi.ImportOptions{
			Password:          p.Password,
			IncludeDuplicates: p.IncludeDuplicates,
		})

	case "storage.migrate":
		if h.legacy == nil {
			return nil, fmt.Errorf("%w: no legacy store configured", seswi.ErrInvalidInput)
		}
		return seswi.MigrateLegacyStorage(ctx, h.legacy, h.legacy, h.logger)

	default:
		return nil, fmt.Errorf("%w: unknown method: %s", seswi.ErrInvalidInput, req.Method)
	}
}

func decode(req *Request, v any) error {
	if len(req.Message) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Message, v); err != nil {
		return fmt.Errorf("%w: invalid %s params: %v", seswi.ErrInvalidInput, req.Method, err)
	}
	return nil
}

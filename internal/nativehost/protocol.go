// Package nativehost speaks the browser native messaging protocol on behalf
// of the session manager. Every message is a 4-byte little-endian length
// followed by a JSON payload.
package nativehost

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"seswi-go/internal/seswi"
)

// MaxMessageSize is the limit browsers put on messages sent to the
// extension. Incoming messages may be larger because backup imports carry
// whole files.
const (
	MaxMessageSize      = 1 << 20
	MaxIncomingSize     = 64 << 20
	headerSize          = 4
	unknownErrorMessage = "unknown error"
)

// Request is one call from the extension. ID correlates the response.
type Request struct {
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Response is the tagged result returned for every request. Context names
// the operation that failed and Kind classifies the failure.
type Response struct {
	ID      int    `json:"id"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Context string `json:"context,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxIncomingSize {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", length, MaxIncomingSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes msg to w with its length prefix.
func WriteMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(msg), MaxMessageSize)
	}
	frame := make([]byte, headerSize+len(msg))
	binary.LittleEndian.PutUint32(frame, uint32(len(msg)))
	copy(frame[headerSize:], msg)
	_, err := w.Write(frame)
	return err
}

// ParseRequest decodes a request payload.
func ParseRequest(b []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	if r.Method == "" {
		return nil, errors.New("method is required")
	}
	return &r, nil
}

// MakeSuccessResponse encodes a success response carrying data.
func MakeSuccessResponse(id int, data any) []byte {
	b, err := json.Marshal(Response{ID: id, Success: true, Data: data})
	if err != nil {
		return MakeErrorResponse(id, fmt.Errorf("encoding response: %w", err))
	}
	return b
}

// MakeErrorResponse encodes a failure response for err.
func MakeErrorResponse(id int, err error) []byte {
	resp := Response{ID: id, Error: unknownErrorMessage}
	if err != nil {
		resp.Error = err.Error()
		resp.Context = seswi.ErrorContext(err)
		resp.Kind = ErrorKind(err)
	}
	b, _ := json.Marshal(resp)
	return b
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{seswi.ErrDuplicateName, "duplicate_name"},
	{seswi.ErrValidation, "validation"},
	{seswi.ErrNoData, "no_data"},
	{seswi.ErrInvalidPayload, "invalid_payload"},
	{seswi.ErrDecryption, "decryption"},
	{seswi.ErrNotFound, "not_found"},
	{seswi.ErrHostAPI, "host_api"},
	{seswi.ErrInvalidInput, "invalid_input"},
	{seswi.ErrInvalidTransition, "invalid_transition"},
}

// ErrorKind returns the wire name of the error kind err carries, or
// "internal" when it carries none.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

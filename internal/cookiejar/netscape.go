package cookiejar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"seswi-go/internal/seswi"
)

const (
	netscapeHeader = "# Netscape HTTP Cookie File\n"
	httpOnlyPrefix = "#HttpOnly_"
)

// FileJar implements seswi.CookieStore over a Netscape cookies.txt file.
// Every call reads the file; mutations rewrite it atomically. The format
// carries no SameSite attribute, so it is lost on write.
type FileJar struct {
	mu     sync.Mutex
	path   string
	clock  seswi.Clock
	logger seswi.Logger
}

var _ seswi.CookieStore = (*FileJar)(nil)

// NewFileJar creates a jar backed by path. A missing file is an empty jar.
func NewFileJar(path string, clock seswi.Clock, logger seswi.Logger) *FileJar {
	return &FileJar{path: path, clock: clock, logger: logger}
}

func (j *FileJar) GetAll(ctx context.Context, storeID string) ([]seswi.Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

func (j *FileJar) Remove(ctx context.Context, ref seswi.CookieRef) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	list, err := j.load()
	if err != nil {
		return err
	}
	list, removed, err := removeRef(list, ref)
	if err != nil || !removed {
		return err
	}
	return j.save(list)
}

func (j *FileJar) Set(ctx context.Context, details seswi.CookieDetails) error {
	ck, err := fromDetails(details)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	list, err := j.load()
	if err != nil {
		return err
	}
	return j.save(upsert(list, ck))
}

func (j *FileJar) load() ([]seswi.Cookie, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening cookie file: %w", err)
	}
	defer f.Close()

	now := float64(j.clock.Now().Unix())
	var list []seswi.Cookie
	for _, ck := range ParseNetscape(f, j.logger) {
		// Expired cookies are dropped the way a browser would.
		if ck.ExpirationDate != nil && *ck.ExpirationDate < now {
			continue
		}
		list = append(list, ck)
	}
	return list, nil
}

// save writes list to the jar file using atomic write (temp file + rename).
func (j *FileJar) save(list []seswi.Cookie) error {
	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating cookie directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-cookies-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := WriteNetscape(tmpFile, list); err != nil {
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		return fmt.Errorf("setting cookie file mode: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// ParseNetscape reads every cookie from a Netscape-format cookie file.
// Lines starting with # are skipped, except #HttpOnly_ which sets the
// HttpOnly flag. Malformed lines are skipped with a warning.
func ParseNetscape(r io.Reader, logger seswi.Logger) []seswi.Cookie {
	var cookies []seswi.Cookie

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = line[len(httpOnlyPrefix):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			logger.Warn("skipping malformed cookie line", "line", line)
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			logger.Warn("skipping cookie with invalid expiry", "expiry", fields[4])
			continue
		}

		ck := seswi.Cookie{
			Domain:   fields[0],
			HostOnly: !strings.EqualFold(fields[1], "TRUE"),
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HTTPOnly: httpOnly,
			Session:  expiry == 0,
		}
		if expiry > 0 {
			exp := float64(expiry)
			ck.ExpirationDate = &exp
		}
		cookies = append(cookies, ck)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading cookie file stopped early", "error", err)
	}
	return cookies
}

// WriteNetscape writes cookies in Netscape format. Session cookies get a
// zero expiry.
func WriteNetscape(w io.Writer, cookies []seswi.Cookie) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(netscapeHeader); err != nil {
		return fmt.Errorf("writing cookie file: %w", err)
	}
	for _, ck := range cookies {
		var expiry int64
		if !ck.Session && ck.ExpirationDate != nil {
			expiry = int64(*ck.ExpirationDate)
		}
		prefix := ""
		if ck.HTTPOnly {
			prefix = httpOnlyPrefix
		}
		_, err := fmt.Fprintf(bw, "%s%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			prefix, ck.Domain, netscapeBool(!ck.HostOnly), ck.Path, netscapeBool(ck.Secure),
			expiry, ck.Name, ck.Value)
		if err != nil {
			return fmt.Errorf("writing cookie file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing cookie file: %w", err)
	}
	return nil
}

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

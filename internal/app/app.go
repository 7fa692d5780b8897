package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seswi-go/internal/browser"
	"seswi-go/internal/config"
	"seswi-go/internal/database"
	"seswi-go/internal/domain"
	"seswi-go/internal/encryption"
	"seswi-go/internal/filter"
	"seswi-go/internal/nativehost"
	"seswi-go/internal/seswi"
	"seswi-go/internal/vault"
)

// App is the application layer between the CLI and seswi.Service.
// It constructs all dependencies from config, records the operation being
// run, and releases resources on Close.
type App struct {
	cfg     *config.Config
	db      seswi.Database
	backend *browser.Backend
	vaults  []seswi.Vault
	service *seswi.Service
	logger  seswi.Logger
	op      *Operation
	logFile *os.File
}

// NewApp creates a fully wired App for op from cfg. Sessions left by older
// versions in the key-value store are migrated on open.
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, op *Operation) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir, op.RunID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &App{cfg: cfg, logger: logger, op: op, logFile: logFile}
	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	logger.Debug("app ready", "operation", op.Operation, "instance", cfg.InstanceID)
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	cipher, err := encryption.NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}

	normalizer, err := domain.NewNormalizer(cfg.Domain.PublicSuffix)
	if err != nil {
		return fmt.Errorf("creating domain normalizer: %w", err)
	}

	clock := seswi.RealClock{}
	a.backend, err = browser.NewBackendFromConfig(cfg.Browser, clock, a.logger)
	if err != nil {
		return fmt.Errorf("creating browser: %w", err)
	}

	matcher, err := a.cookieMatcher()
	if err != nil {
		return err
	}

	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		a.vaults = append(a.vaults, v)
	}

	a.service = seswi.NewService(db, a.backend.Browser, cipher, normalizer, a.logger, clock, seswi.ServiceOptions{
		TabInfoTTL:   time.Duration(cfg.Browser.TabCacheTTLMs) * time.Millisecond,
		CookieFilter: matcher,
	})

	res, err := seswi.MigrateLegacyStorage(ctx, db, db, a.logger)
	if err != nil {
		return fmt.Errorf("migrating stored sessions: %w", err)
	}
	if res.Imported > 0 || res.Invalid > 0 {
		a.logger.Info("legacy sessions migrated", "imported", res.Imported, "invalid", res.Invalid)
	}
	return nil
}

// cookieMatcher combines the configured ignore patterns with the ignore
// file in the base directory. The file is read last so it can re-include
// names with "!".
func (a *App) cookieMatcher() (*filter.CookieMatcher, error) {
	patterns := append([]string{}, a.cfg.Capture.IgnoreCookies...)
	if a.cfg.BaseDir != "" {
		fromFile, err := filter.ParseIgnoreFile(filepath.Join(a.cfg.BaseDir, filter.IgnoreFileName))
		if err != nil {
			return nil, fmt.Errorf("reading cookie ignore file: %w", err)
		}
		patterns = append(patterns, fromFile...)
	}
	return filter.NewCookieMatcher(patterns), nil
}

// Service exposes the wired service.
func (a *App) Service() *seswi.Service {
	return a.service
}

// persistOperation records the operation in the database, giving it an ID.
// Only session-mutating commands call it.
func (a *App) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(ctx, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// openURL points an offline browser at url. Browsers with real tabs use the
// active tab and reject an explicit URL.
func (a *App) openURL(url string) error {
	if url == "" {
		return nil
	}
	if a.backend.Offline == nil {
		return fmt.Errorf("%w: browser type %q follows the active tab, --url is not supported", seswi.ErrInvalidInput, a.cfg.Browser.Type)
	}
	a.backend.Offline.Open(url)
	return nil
}

// ListSessions returns every session, or only those matching domain.
func (a *App) ListSessions(ctx context.Context, dom string) ([]*seswi.Session, error) {
	if dom == "" {
		return a.service.Repository().GetAll(ctx)
	}
	return a.service.Repository().GetByDomain(ctx, dom)
}

// Groups returns the sessions grouped by domain.
func (a *App) Groups(ctx context.Context) ([]*seswi.SessionGroup, error) {
	return a.service.Repository().GetGrouped(ctx)
}

// Rename changes the name of the session at timestamp.
func (a *App) Rename(ctx context.Context, timestamp int64, name string) (*seswi.Session, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	s, err := a.service.Repository().Rename(ctx, timestamp, name)
	return s, a.op.Finish(err)
}

// Delete removes the session at timestamp.
func (a *App) Delete(ctx context.Context, timestamp int64) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.op.Finish(a.service.Repository().Delete(ctx, timestamp))
}

// DeleteDomains removes every session saved for domains.
func (a *App) DeleteDomains(ctx context.Context, domains []string) (*seswi.DeleteDomainsResult, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	res, err := a.service.Repository().DeleteByDomains(ctx, domains)
	return res, a.op.Finish(err)
}

// Capture saves the site at url, or the active tab when url is empty.
func (a *App) Capture(ctx context.Context, url, name string) (*seswi.SaveResult, error) {
	if err := a.openURL(url); err != nil {
		return nil, err
	}
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	res, err := a.service.SaveCurrent(ctx, name)
	return res, a.op.Finish(err)
}

// Restore switches the browser to the session at timestamp. With an offline
// browser the session's own URL is opened first.
func (a *App) Restore(ctx context.Context, timestamp int64) (*seswi.RestoreSessionResult, error) {
	if a.backend.Offline != nil {
		s, err := a.service.Repository().Get(ctx, timestamp)
		if err != nil {
			return nil, err
		}
		if s != nil {
			a.backend.Offline.Open(s.OriginalURL)
		}
	}
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	res, err := a.service.RestoreSession(ctx, timestamp)
	return res, a.op.Finish(err)
}

// Clean wipes the site at url, or the active tab when url is empty.
func (a *App) Clean(ctx context.Context, url string) (*seswi.CleanResult, error) {
	if err := a.openURL(url); err != nil {
		return nil, err
	}
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	res, err := a.service.CleanCurrentTab(ctx)
	return res, a.op.Finish(err)
}

// ExportedBackup reports where an export was written.
type ExportedBackup struct {
	*seswi.ExportResult
	Path  string
	Vault string
}

// Export encodes sessions and writes the file into dir, or uploads it to
// the named vault when vaultName is set.
func (a *App) Export(ctx context.Context, opts seswi.ExportOptions, dir, vaultName string) (*ExportedBackup, error) {
	res, err := a.service.Export(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := &ExportedBackup{ExportResult: res}

	if vaultName != "" {
		v, err := a.vault(vaultName)
		if err != nil {
			return nil, err
		}
		if err := v.PutBackup(ctx, res.FileName, bytes.NewReader(res.Data), int64(len(res.Data))); err != nil {
			return nil, fmt.Errorf("uploading backup to %s: %w", v.Name(), err)
		}
		out.Vault = v.Name()
		a.logger.Info("backup uploaded", "vault", v.Name(), "file", res.FileName, "size", len(res.Data))
		return out, nil
	}

	out.Path = filepath.Join(dir, res.FileName)
	if err := os.WriteFile(out.Path, res.Data, 0600); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	return out, nil
}

// Import reads the backup at source and merges it. Source is a file path,
// or a backup name in the named vault when vaultName is set.
func (a *App) Import(ctx context.Context, source, vaultName string, opts seswi.ImportOptions) (*seswi.ImportResult, error) {
	var data []byte
	if vaultName != "" {
		v, err := a.vault(vaultName)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := v.GetBackup(ctx, source, &buf); err != nil {
			return nil, fmt.Errorf("downloading backup from %s: %w", v.Name(), err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = os.ReadFile(source); err != nil {
			return nil, fmt.Errorf("reading backup: %w", err)
		}
	}

	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	res, err := a.service.Import(ctx, filepath.Base(source), data, opts)
	return res, a.op.Finish(err)
}

// ListBackups lists the backups stored in the named vault.
func (a *App) ListBackups(ctx context.Context, vaultName string) (string, []seswi.BackupObject, error) {
	v, err := a.vault(vaultName)
	if err != nil {
		return "", nil, err
	}
	objs, err := v.ListBackups(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("listing backups in %s: %w", v.Name(), err)
	}
	return v.Name(), objs, nil
}

// CheckVault verifies that the named vault is reachable and writable.
func (a *App) CheckVault(ctx context.Context, vaultName string) (string, error) {
	v, err := a.vault(vaultName)
	if err != nil {
		return "", err
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return v.Name(), fmt.Errorf("vault %s: %w", v.Name(), err)
	}
	return v.Name(), nil
}

// BackupDatabase uploads a consistent copy of the session database to the
// named vault as <instance id>.db and returns the stored name.
func (a *App) BackupDatabase(ctx context.Context, vaultName string) (string, error) {
	v, err := a.vault(vaultName)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "seswi-db-backup-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir for db backup: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "sessions.db")
	if err := a.db.BackupTo(tmpPath); err != nil {
		return "", fmt.Errorf("backing up database: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat db backup: %w", err)
	}

	name := a.cfg.InstanceID + ".db"
	if err := v.PutBackup(ctx, name, f, info.Size()); err != nil {
		return "", fmt.Errorf("uploading db backup to %s: %w", v.Name(), err)
	}
	a.logger.Info("database uploaded", "vault", v.Name(), "name", name, "size", info.Size())
	return v.Name() + ":" + name, nil
}

// History returns the most recent recorded operations.
func (a *App) History(ctx context.Context, limit int) ([]*seswi.Operation, error) {
	return a.db.ListOperations(ctx, limit)
}

// ServeHost runs the native messaging loop on stdin and stdout until the
// browser closes the connection.
func (a *App) ServeHost(ctx context.Context) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	h := nativehost.NewHost(a.service, a.db, a.logger)
	return a.op.Finish(h.Run(ctx))
}

// vault returns the vault called name, or the first configured vault when
// name is empty.
func (a *App) vault(name string) (seswi.Vault, error) {
	if len(a.vaults) == 0 {
		return nil, errors.New("no vaults configured")
	}
	if name == "" {
		return a.vaults[0], nil
	}
	for _, v := range a.vaults {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: vault %q", seswi.ErrNotFound, name)
}

// Close finishes the operation record and releases all resources.
func (a *App) Close() error {
	var firstErr error
	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *App) closeResources() error {
	var firstErr error
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			firstErr = fmt.Errorf("closing browser: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

package seswi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Storage keys used by earlier versions of the extension.
const (
	StorageKey       = "seswi-sessions-blyat"
	LegacyStorageKey = "sessions"
)

// MigrationResult reports what MigrateLegacyStorage did.
type MigrationResult struct {
	RenamedKey bool `json:"renamedKey"`
	Imported   int  `json:"imported"`
	Invalid    int  `json:"invalid"`
}

// MigrateLegacyStorage moves sessions left in the key-value store by older
// versions into the per-record store. The deprecated key is copied to the
// current key only when the current key is empty, and removed only when it
// was copied. Records are imported only into an empty store. Running it
// again is a no-op.
func MigrateLegacyStorage(ctx context.Context, kv KeyValueStore, store SessionStore, logger Logger) (*MigrationResult, error) {
	res := &MigrationResult{}

	oldRaw, oldList, err := readList(ctx, kv, LegacyStorageKey)
	if err != nil {
		return nil, opError("migrateStorageKeyIfNeeded", err)
	}
	_, current, err := readList(ctx, kv, StorageKey)
	if err != nil {
		return nil, opError("migrateStorageKeyIfNeeded", err)
	}

	if len(current) == 0 && len(oldList) > 0 {
		if err := kv.Set(ctx, StorageKey, oldRaw); err != nil {
			return nil, opError("migrateStorageKeyIfNeeded", fmt.Errorf("copying legacy sessions: %w", err))
		}
		if err := kv.Remove(ctx, LegacyStorageKey); err != nil {
			logger.Warn("could not remove legacy storage key", "key", LegacyStorageKey, "error", err)
		}
		res.RenamedKey = true
		current = oldList
		logger.Info("migrated legacy storage key", "from", LegacyStorageKey, "to", StorageKey, "count", len(oldList))
	}

	if len(current) == 0 {
		return res, nil
	}

	count, err := store.CountRecords(ctx)
	if err != nil {
		return nil, opError("migrateStorage", err)
	}
	if count > 0 {
		return res, nil
	}

	recs := make([]SessionRecord, 0, len(current))
	for _, raw := range current {
		rec := looseRecord(raw)
		if rec.Valid {
			res.Imported++
		} else {
			res.Invalid++
		}
		recs = append(recs, rec)
	}
	if err := store.InsertRecords(ctx, recs); err != nil {
		return nil, opError("migrateStorage", err)
	}
	if err := kv.Remove(ctx, StorageKey); err != nil {
		logger.Warn("could not remove migrated storage key", "key", StorageKey, "error", err)
	}

	logger.Info("imported stored sessions", "imported", res.Imported, "invalid", res.Invalid)
	return res, nil
}

// readList returns the raw value of key and its elements when it is a JSON
// array. Any other value counts as an empty list.
func readList(ctx context.Context, kv KeyValueStore, key string) ([]byte, []json.RawMessage, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if raw == nil || !isJSONArray(raw) {
		return raw, nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return raw, nil, nil
	}
	return raw, items, nil
}

// looseRecord keeps raw exactly as stored. Invalid records get whatever
// index columns can be recovered.
func looseRecord(raw json.RawMessage) SessionRecord {
	if s, err := DecodeSession(raw); err == nil {
		return SessionRecord{
			Timestamp: s.Timestamp,
			Domain:    s.Domain,
			NameKey:   s.NameKey(),
			Valid:     true,
			Data:      raw,
		}
	}

	var partial struct {
		Name      any `json:"name"`
		Domain    any `json:"domain"`
		Timestamp any `json:"timestamp"`
	}
	_ = json.Unmarshal(raw, &partial)
	rec := SessionRecord{Data: raw}
	if d, ok := partial.Domain.(string); ok {
		rec.Domain = d
	}
	if f, ok := partial.Timestamp.(float64); ok {
		rec.Timestamp = int64(f)
	}
	if n, ok := partial.Name.(string); ok {
		rec.NameKey = NameKey(rec.Domain, n)
	}
	return rec
}

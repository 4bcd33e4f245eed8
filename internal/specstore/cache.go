package specstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

// LevelDB key prefix scheme — uses "|" as separator so command/cwd values
// containing ":" stay unambiguous.
//
//	d|<command>                       → discovered CommandSpec JSON
//	g|<command>|<cwd>                 → generatorCacheEntry JSON
const (
	prefixDiscovered = "d|"
	prefixGenerator  = "g|"
)

// Cache is a durable, TTL-aware store for discovered CommandSpecs (derived
// from --help or zsh completion parsing) and generator execution results.
// Grounded on internal/roles/memory/memory.go's Store: a single LevelDB
// handle behind a narrow method set, opened once at startup.
type Cache struct {
	db *leveldb.DB
}

// OpenCache opens (or creates) a LevelDB database at dbPath.
func OpenCache(dbPath string) (*Cache, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("specstore: open cache at %s: %w", dbPath, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying LevelDB handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// PutDiscovered persists a discovered CommandSpec, keyed by command name.
// Discovered specs have no TTL — they are invalidated explicitly by a
// `clear_cache` request or by stale-removal when a compsys export marker
// goes missing (spec.md §6.2).
func (c *Cache) PutDiscovered(name string, spec specmodel.CommandSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("specstore: marshal discovered spec %s: %w", name, err)
	}
	return c.db.Put([]byte(prefixDiscovered+name), data, nil)
}

// GetDiscovered returns a previously discovered spec, if any.
func (c *Cache) GetDiscovered(name string) (specmodel.CommandSpec, bool) {
	data, err := c.db.Get([]byte(prefixDiscovered+name), nil)
	if err != nil {
		return specmodel.CommandSpec{}, false
	}
	var spec specmodel.CommandSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		slog.Warn("specstore: corrupt discovered-spec cache entry", "command", name, "error", err)
		return specmodel.CommandSpec{}, false
	}
	spec.Source = specmodel.SourceDiscovered
	return spec, true
}

// AllDiscoveredNames lists every command name with a discovered spec on
// disk, used by all_command_names(cwd).
func (c *Cache) AllDiscoveredNames() []string {
	iter := c.db.NewIterator(util.BytesPrefix([]byte(prefixDiscovered)), nil)
	defer iter.Release()
	var names []string
	for iter.Next() {
		names = append(names, string(iter.Key()[len(prefixDiscovered):]))
	}
	return names
}

// DeleteDiscovered removes a discovered spec, used by stale-removal when its
// compsys export marker file disappears.
func (c *Cache) DeleteDiscovered(name string) error {
	return c.db.Delete([]byte(prefixDiscovered+name), nil)
}

type generatorCacheEntry struct {
	Values    []string  `json:"values"`
	StoredAt  time.Time `json:"stored_at"`
	TTLSecs   int       `json:"ttl_secs"`
}

func generatorKey(command, cwd string) string {
	return prefixGenerator + command + "|" + cwd
}

// PutGenerator caches a generator's output for (command, cwd) with the
// generator's own TTL.
func (c *Cache) PutGenerator(command, cwd string, values []string, ttl time.Duration) error {
	entry := generatorCacheEntry{Values: values, StoredAt: time.Now(), TTLSecs: int(ttl.Seconds())}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("specstore: marshal generator cache entry: %w", err)
	}
	return c.db.Put([]byte(generatorKey(command, cwd)), data, nil)
}

// GetGenerator returns a cached generator result if it has not yet expired.
func (c *Cache) GetGenerator(command, cwd string) ([]string, bool) {
	data, err := c.db.Get([]byte(generatorKey(command, cwd)), nil)
	if err != nil {
		return nil, false
	}
	var entry generatorCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if time.Since(entry.StoredAt) > time.Duration(entry.TTLSecs)*time.Second {
		return nil, false
	}
	return entry.Values, true
}

// Clear wipes every cached entry — used by the clear_cache request.
func (c *Cache) Clear() error {
	iter := c.db.NewIterator(nil, nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	return c.db.Write(batch, nil)
}

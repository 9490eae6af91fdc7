// Package cache memoises model responses on disk so the same template run on
// the same input does not pay for a second request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/processor"
	"go.klb.dev/reclip/internal/template"
)

// DefaultTTL is how long a cached response stays valid.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "resp/"

// Cache is a badger-backed response store.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates the cache in dir. A non-positive ttl selects
// DefaultTTL.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close flushes and closes the store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for running tmpl over in.
func Key(tmpl *template.Template, in content.Content) []byte {
	h := sha256.New()
	for _, s := range []string{tmpl.APIProvider, tmpl.Model, tmpl.Prompt, string(in.Kind)} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	if in.Kind == content.KindImage && in.Image != nil {
		h.Write(in.Image.PNG)
	} else {
		h.Write([]byte(in.Text))
	}
	return []byte(keyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Get returns the cached response for key, if any.
func (c *Cache) Get(key []byte) (string, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return string(out), true, nil
}

// Put stores a response under key with the cache TTL.
func (c *Cache) Put(key []byte, value string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, []byte(value)).WithTTL(c.ttl))
	})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Wrap returns a Processor that consults the cache before calling next and
// stores successful responses. Cache faults are logged and bypassed.
func (c *Cache) Wrap(next processor.Processor) processor.Processor {
	return &cached{cache: c, next: next}
}

type cached struct {
	cache *Cache
	next  processor.Processor
}

func (p *cached) Process(ctx context.Context, tmpl *template.Template, in content.Content) (string, error) {
	if in.IsEmpty() || !tmpl.Accepts(in) {
		return p.next.Process(ctx, tmpl, in)
	}
	key := Key(tmpl, in)
	if out, ok, err := p.cache.Get(key); err != nil {
		slog.Warn("response cache unavailable", "err", err)
	} else if ok {
		slog.Info("response served from cache, model not called", "template", tmpl.Name, "provider", tmpl.APIProvider)
		return out, nil
	}

	out, err := p.next.Process(ctx, tmpl, in)
	if err != nil {
		return "", err
	}
	if err := p.cache.Put(key, out); err != nil {
		slog.Warn("response not cached", "err", err)
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"PasteBox/model"
	"PasteBox/utils"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxShortCodeLen = 32

// ShortLinkRegistry mints short codes and maps them back to records. Lookups
// go through an in-process LRU, then the optional shared cache, then the store.
type ShortLinkRegistry struct {
	records     RecordStore
	shared      CodeCache
	local       *expirable.LRU[string, string]
	baseURL     string
	length      int
	maxAttempts int
	log         *slog.Logger
}

// RegistryOptions configures a ShortLinkRegistry.
type RegistryOptions struct {
	BaseURL     string
	Length      int
	MaxAttempts int
	CacheSize   int
	CacheTTL    time.Duration
}

// NewShortLinkRegistry returns a registry. shared may be nil.
func NewShortLinkRegistry(records RecordStore, shared CodeCache, opts RegistryOptions, log *slog.Logger) *ShortLinkRegistry {
	if opts.Length <= 0 {
		opts.Length = 9
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	r := &ShortLinkRegistry{
		records:     records,
		shared:      shared,
		baseURL:     opts.BaseURL,
		length:      opts.Length,
		maxAttempts: opts.MaxAttempts,
		log:         log,
	}
	if opts.CacheSize > 0 {
		r.local = expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL)
	}
	return r
}

// Mint returns a code not yet used in kind's namespace. The existence check
// is advisory; the store's unique constraint is the final arbiter.
func (r *ShortLinkRegistry) Mint(ctx context.Context, kind model.OwnerKind) (string, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		code, err := utils.GenShortCode(r.length)
		if err != nil {
			return "", err
		}
		exists, err := r.records.ShortCodeExists(ctx, code, kind)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		shortCodeCollisions.Inc()
	}
	return "", fmt.Errorf("%w: after %d attempts", ErrExhaustedRetries, r.maxAttempts)
}

// URL formats the public short URL for a code.
func (r *ShortLinkRegistry) URL(code string, kind model.OwnerKind) string {
	return r.baseURL + "/" + kind.Namespace() + "/" + code
}

// Resolve maps a short code to its record id.
func (r *ShortLinkRegistry) Resolve(ctx context.Context, code string, kind model.OwnerKind) (string, error) {
	rec, err := r.lookup(ctx, code, kind)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *ShortLinkRegistry) lookup(ctx context.Context, code string, kind model.OwnerKind) (*model.FileRecord, error) {
	if !kind.Valid() || !utils.IsShortCode(code, maxShortCodeLen) {
		return nil, ErrNotFound
	}
	if id, ok := r.cached(ctx, kind, code); ok {
		rec, err := r.records.GetByID(ctx, id)
		if err == nil && rec.ShortCode == code && rec.OwnerKind == kind {
			return rec, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// the code was regenerated or the row purged since it was cached
		r.Forget(ctx, code, kind)
	}
	rec, err := r.records.GetByShortCode(ctx, code, kind)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, kind, code, rec.ID)
	return rec, nil
}

func (r *ShortLinkRegistry) cached(ctx context.Context, kind model.OwnerKind, code string) (string, bool) {
	key := kind.Namespace() + ":" + code
	if r.local != nil {
		if id, ok := r.local.Get(key); ok {
			return id, true
		}
	}
	if r.shared != nil {
		if id, ok := r.shared.GetID(ctx, kind, code); ok {
			if r.local != nil {
				r.local.Add(key, id)
			}
			return id, true
		}
	}
	return "", false
}

func (r *ShortLinkRegistry) remember(ctx context.Context, kind model.OwnerKind, code, id string) {
	if r.local != nil {
		r.local.Add(kind.Namespace()+":"+code, id)
	}
	if r.shared != nil {
		if err := r.shared.SetID(ctx, kind, code, id); err != nil {
			r.log.Warn("cache short code failed", "code", code, "err", err)
		}
	}
}

// Forget evicts a code from every cache tier.
func (r *ShortLinkRegistry) Forget(ctx context.Context, code string, kind model.OwnerKind) {
	if r.local != nil {
		r.local.Remove(kind.Namespace() + ":" + code)
	}
	if r.shared != nil {
		if err := r.shared.Forget(ctx, kind, code); err != nil {
			r.log.Warn("evict short code failed", "code", code, "err", err)
		}
	}
}

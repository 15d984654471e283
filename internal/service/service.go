package service

import (
	"errors"
	"log/slog"
	"time"

	"PasteBox/config"
	"PasteBox/internal/storage"
)

// Deps are the collaborators of a FileService. Cache, Expiry and Notifier
// are optional.
type Deps struct {
	Records  RecordStore
	Owners   OwnerStore
	Storage  storage.Store
	Cache    CodeCache
	Expiry   ExpiryScheduler
	Notifier ShareNotifier
	Logger   *slog.Logger
}

// Options are the tunables of a FileService.
type Options struct {
	BaseURL            string
	DefaultExpiry      time.Duration
	SweepRearm         bool
	TombstoneRetention time.Duration
	DeleteLease        time.Duration
	StorageTimeout     time.Duration
	SignedURLTTL       time.Duration

	ShortCodeLength      int
	ShortCodeMaxAttempts int
	ShortCodeCacheSize   int
	ShortCodeCacheTTL    time.Duration

	BcryptCost     int
	MaxUploadFiles int

	Now func() time.Time
}

// OptionsFromConfig maps the loaded application config onto Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BaseURL:              cfg.BaseURL,
		DefaultExpiry:        cfg.DefaultExpiry,
		SweepRearm:           cfg.SweepRearm,
		TombstoneRetention:   cfg.TombstoneRetention,
		DeleteLease:          cfg.DeleteLease,
		StorageTimeout:       cfg.Storage.Timeout,
		SignedURLTTL:         cfg.Storage.SignedURLTTL,
		ShortCodeLength:      cfg.ShortCodeLength,
		ShortCodeMaxAttempts: cfg.ShortCodeMaxAttempts,
		ShortCodeCacheSize:   cfg.ShortCodeCacheSize,
		ShortCodeCacheTTL:    cfg.ShortCodeCacheTTL,
		BcryptCost:           cfg.BcryptCost,
		MaxUploadFiles:       cfg.MaxUploadFiles,
	}
}

func (o *Options) setDefaults() {
	if o.DefaultExpiry <= 0 {
		o.DefaultExpiry = 240 * time.Hour
	}
	if o.DeleteLease <= 0 {
		o.DeleteLease = 5 * time.Minute
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 15 * time.Second
	}
	if o.SignedURLTTL <= 0 {
		o.SignedURLTTL = time.Hour
	}
	if o.MaxUploadFiles <= 0 {
		o.MaxUploadFiles = 10
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// FileService owns the lifecycle of file records: creation, resolution,
// authorization, mutation, deletion and expiry reconciliation.
type FileService struct {
	records  RecordStore
	owners   OwnerStore
	store    storage.Store
	expiry   ExpiryScheduler
	notifier ShareNotifier
	log      *slog.Logger
	opts     Options

	guard  *CredentialGuard
	policy *ExpiryPolicy
	links  *ShortLinkRegistry
	broker *DownloadBroker
}

// NewFileService wires a FileService.
func NewFileService(deps Deps, opts Options) *FileService {
	opts.setDefaults()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &FileService{
		records:  deps.Records,
		owners:   deps.Owners,
		store:    deps.Storage,
		expiry:   deps.Expiry,
		notifier: deps.Notifier,
		log:      log,
		opts:     opts,
		guard:    NewCredentialGuard(opts.BcryptCost),
		policy: &ExpiryPolicy{
			Now:            opts.Now,
			DefaultHorizon: opts.DefaultExpiry,
			RearmOnSweep:   opts.SweepRearm,
		},
	}
	s.links = NewShortLinkRegistry(deps.Records, deps.Cache, RegistryOptions{
		BaseURL:     opts.BaseURL,
		Length:      opts.ShortCodeLength,
		MaxAttempts: opts.ShortCodeMaxAttempts,
		CacheSize:   opts.ShortCodeCacheSize,
		CacheTTL:    opts.ShortCodeCacheTTL,
	}, log)
	s.broker = NewDownloadBroker(deps.Storage, deps.Records, deps.Owners, BrokerOptions{
		TTL:     opts.SignedURLTTL,
		Timeout: opts.StorageTimeout,
		Now:     opts.Now,
	}, log)
	return s
}

// Links returns the short link registry.
func (s *FileService) Links() *ShortLinkRegistry { return s.links }

func (s *FileService) now() time.Time { return s.opts.Now() }

func isKind(err, kind error) bool { return errors.Is(err, kind) }

package di

import (
	"forum_backend/internal/feature/forum/adapters"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/config"
	"forum_backend/internal/platform/hash"
	"forum_backend/internal/platform/htmlsanitize"
	"forum_backend/internal/platform/kv"
	"forum_backend/internal/shared/ratelimiter"
)

// NewForumStore wires the forum store on top of b.
func NewForumStore(cfg config.Config, b kv.Backend) *usecase.Store {
	opts := usecase.Options{
		TokenTTL:            cfg.ResetTokenTTL,
		OpTimeout:           cfg.OpTimeout,
		RequireExplicitInit: !cfg.LazyInit,
		LazyInit:            usecase.InitOptions{IncludeSampleGroups: cfg.SeedSampleGroups},
		StrictZeroCapacity:  !cfg.ZeroCapacityUnlimited,
		Seed: usecase.SeedOptions{
			AdminPassword: cfg.SeedAdminPassword,
			GuestPassword: cfg.SeedGuestPassword,
		},
		Sanitizer: htmlsanitize.Sanitizer{},
	}
	if cfg.ResetRateLimit > 0 {
		opts.ResetLimiter = ratelimiter.NewRateLimiter(cfg.ResetRateLimit, cfg.ResetRateWindow)
	}

	return usecase.NewStore(
		adapters.NewRepositories(b, cfg.Namespace),
		adapters.NewLocker(b, cfg.Namespace),
		hash.NewBcrypt(cfg.BcryptCost),
		opts,
	)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/config"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/service"
	"github.com/Mindburn-Labs/recaudit/pkg/store/ledger"
	"github.com/Mindburn-Labs/recaudit/pkg/store/verdictcache"
)

const verdictTTL = 24 * time.Hour

// storeFlags are the ledger and policy settings shared by commands that touch the
// ledger. Defaults come from the environment.
type storeFlags struct {
	driver  string
	dsn     string
	profile string
}

func openLedger(ctx context.Context, driver, dsn string) (ledger.Ledger, error) {
	switch driver {
	case config.LedgerMemory:
		return ledger.NewMemoryLedger(), nil
	case config.LedgerSQLite:
		return ledger.Open(ctx, ledger.DialectSQLite, dsn)
	case config.LedgerPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres ledger requires a DSN")
		}
		return ledger.Open(ctx, ledger.DialectPostgres, dsn)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", driver)
	}
}

// openService wires a service from the session and store flags. The returned close
// function releases the ledger and cache.
func (s *session) openService(ctx context.Context, verifier crypto.SignatureVerifier, sf storeFlags, opts ...service.Option) (*service.Service, func(), error) {
	policy, err := config.LoadProfile(sf.profile)
	if err != nil {
		return nil, nil, err
	}

	store, err := openLedger(ctx, sf.driver, sf.dsn)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{store.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	opts = append(opts, service.WithLogger(s.logger), service.WithTelemetry(s.telemetry))
	if s.cfg.RedisAddr != "" {
		cache, err := verdictcache.DialRedis(ctx, s.cfg.RedisAddr, verdictTTL)
		if err != nil {
			// Fall back to the in-memory cache.
			s.logger.WarnContext(ctx, "redis verdict cache unavailable, using memory", "addr", s.cfg.RedisAddr, "error", err)
		} else {
			closers = append(closers, cache.Close)
			opts = append(opts, service.WithCache(cache))
		}
	}

	svc, err := service.New(verifier, policy, store, opts...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	s.logger.DebugContext(ctx, "service ready",
		"ledger", sf.driver,
		"policy", policy.Name,
		"policy_version", policy.Version.String(),
	)
	return svc, closeAll, nil
}

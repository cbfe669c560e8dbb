package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
)

// MigrationReport describes what a migration run did
type MigrationReport struct {
	AlreadyMigrated bool
	Migrated        []domain.AuthContext
	Malformed       []domain.AuthContext
}

// MigrateLegacySessions rewrites pre-scoping admin and orders sessions into
// the domain-scoped layout under defaultDomain. It runs once per store: the
// auth_migrated_v2 flag short-circuits later calls. Superadmin sessions are
// already global and stay where they are. A context whose legacy user JSON
// does not parse is skipped and its keys are left alone.
func MigrateLegacySessions(ctx context.Context, kv domain.KeyValueStore, defaultDomain string, logger *slog.Logger) (MigrationReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report MigrationReport

	if _, done, err := kv.Get(ctx, MigratedFlagKey); err != nil {
		return report, fmt.Errorf("read migration flag: %w", err)
	} else if done {
		report.AlreadyMigrated = true
		return report, nil
	}

	for _, c := range domain.AuthContexts {
		if !c.DomainScoped() {
			continue
		}

		token, hasToken, err := kv.Get(ctx, legacyTokenKey(c))
		if err != nil {
			return report, fmt.Errorf("read legacy %s token: %w", c, err)
		}
		rawUser, hasUser, err := kv.Get(ctx, legacyUserKey(c))
		if err != nil {
			return report, fmt.Errorf("read legacy %s user: %w", c, err)
		}
		if !hasToken || !hasUser {
			continue
		}

		var user domain.User
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			logger.Warn("skipping malformed legacy session",
				slog.String("context", string(c)),
				slog.String("error", err.Error()),
			)
			report.Malformed = append(report.Malformed, c)
			continue
		}

		key := domain.Scope{Context: c, TenantDomain: defaultDomain}.SessionKey()
		writes := []struct{ k, v string }{
			{tokenKey(key), token},
			{userKey(key), rawUser},
			{domainKey(key), defaultDomain},
		}
		for _, w := range writes {
			if err := kv.Set(ctx, w.k, w.v); err != nil {
				return report, fmt.Errorf("write migrated %s session: %w", c, err)
			}
		}
		for _, k := range []string{legacyTokenKey(c), legacyUserKey(c)} {
			if err := kv.Remove(ctx, k); err != nil {
				return report, fmt.Errorf("remove legacy %s session: %w", c, err)
			}
		}

		logger.Info("migrated legacy session",
			slog.String("context", string(c)),
			slog.String("session_key", key),
		)
		report.Migrated = append(report.Migrated, c)
	}

	if err := kv.Set(ctx, MigratedFlagKey, "true"); err != nil {
		return report, fmt.Errorf("write migration flag: %w", err)
	}
	metrics.AddMigratedSessions(len(report.Migrated))
	return report, nil
}

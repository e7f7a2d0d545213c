package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/metrics"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// GateDenyReason is a stable code for widget-gate denials.
type GateDenyReason string

const (
	GateDenyMissingKey       GateDenyReason = "missing_key"
	GateDenyInvalidKey       GateDenyReason = "invalid_key"
	GateDenyOriginNotAllowed GateDenyReason = "origin_not_allowed"
)

// GateDecision is the gate's verdict for one widget request.
type GateDecision struct {
	Allowed bool
	OrgID   string
	Reason  GateDenyReason

	// Preflight marks an OPTIONS request that was admitted without a
	// credential check; it carries no tenant identity.
	Preflight bool

	// Warning is set when a check was waived outside production.
	Warning string
}

// WidgetGate authorizes tenant-scoped widget traffic by API key. It is
// the one concurrently-hot path in the service and owns the only
// long-lived mutable state: the bounded TTL credential cache.
type WidgetGate struct {
	store      store.Store
	cache      *credCache
	production bool
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewWidgetGate builds a gate. now is injectable for tests; nil means
// wall clock. metrics may be nil.
func NewWidgetGate(st store.Store, production bool, m *metrics.Metrics, now func() time.Time) *WidgetGate {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &WidgetGate{
		store:      st,
		cache:      newCredCache(CredentialTTL, now),
		production: production,
		metrics:    m,
		now:        now,
	}
}

// Validate authorizes one widget request. CORS preflights pass without a
// credential check; everything else needs an active key whose allowed
// origins admit the request origin.
func (g *WidgetGate) Validate(ctx context.Context, apiKey, origin, method string) GateDecision {
	log := slogx.FromContext(ctx)

	if method == http.MethodOptions {
		return GateDecision{Allowed: true, Preflight: true}
	}

	if apiKey == "" {
		g.countDenial(GateDenyMissingKey)
		return GateDecision{Reason: GateDenyMissingKey}
	}

	cred, err := g.lookup(ctx, apiKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("credential lookup failed", slog.Any("error", err))
		}
		g.countDenial(GateDenyInvalidKey)
		return GateDecision{Reason: GateDenyInvalidKey}
	}

	decision := GateDecision{Allowed: true, OrgID: cred.OrgID}

	if !cred.AllowsOrigin(origin) {
		if g.production {
			log.Warn("widget origin rejected",
				slog.String("org_id", cred.OrgID),
				slog.String("origin", origin),
			)
			g.countDenial(GateDenyOriginNotAllowed)
			return GateDecision{Reason: GateDenyOriginNotAllowed}
		}
		// Outside production an unknown origin is let through so local
		// and staging setups work against real keys.
		log.Warn("widget origin not in allowed set, admitted outside production",
			slog.String("org_id", cred.OrgID),
			slog.String("origin", origin),
		)
		decision.Warning = "origin not in allowed set"
		return decision
	}

	g.maybeRegisterOrigin(ctx, cred, origin)

	return decision
}

// lookup serves from the cache within TTL, otherwise re-verifies against
// the store. Only active records are cached: a negative result must not
// be pinned past the key being activated later.
func (g *WidgetGate) lookup(ctx context.Context, apiKey string) (domain.APIKey, error) {
	if cred, ok := g.cache.get(apiKey); ok {
		if g.metrics != nil {
			g.metrics.APIKeyCacheHits.Inc()
		}
		return cred, nil
	}

	if g.metrics != nil {
		g.metrics.APIKeyCacheMisses.Inc()
	}

	cred, err := g.store.APIKeys().GetAPIKeyByKey(ctx, apiKey)
	if err != nil {
		return domain.APIKey{}, err
	}
	if !cred.Active {
		return domain.APIKey{}, store.ErrNotFound
	}

	g.cache.put(cred)
	return cred, nil
}

// maybeRegisterOrigin opportunistically appends a wildcard-admitted
// origin to the tenant's allowed set while it is below the ceiling.
// Best-effort: a store failure is logged and the request proceeds.
func (g *WidgetGate) maybeRegisterOrigin(ctx context.Context, cred domain.APIKey, origin string) {
	if origin == "" || origin == domain.OriginWildcard {
		return
	}
	for _, o := range cred.AllowedOrigins {
		if o == origin {
			return
		}
	}
	if len(cred.AllowedOrigins) >= domain.MaxAllowedOrigins {
		return
	}

	updated := append(append([]string(nil), cred.AllowedOrigins...), origin)
	if err := g.store.APIKeys().UpdateAllowedOrigins(ctx, cred.ID, updated); err != nil {
		slogx.FromContext(ctx).Warn("origin auto-registration failed",
			slog.String("org_id", cred.OrgID),
			slog.String("origin", origin),
			slog.Any("error", err),
		)
		return
	}

	cred.AllowedOrigins = updated
	g.cache.put(cred)
}

func (g *WidgetGate) countDenial(reason GateDenyReason) {
	if g.metrics != nil {
		g.metrics.GateDenials.WithLabelValues(string(reason)).Inc()
	}
}

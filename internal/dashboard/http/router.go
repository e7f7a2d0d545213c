package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/metrics"
	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/httpx"
	"github.com/chatforge/chatforge/pkg/jwtx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store   store.Store
	metrics *metrics.Metrics

	MemberService    *service.MemberService
	InviteService    *service.InviteService
	BootstrapService *service.BootstrapService
	WidgetGate       *service.WidgetGate
}

func NewRouter(
	signer *jwtx.Signer,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		m.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerMembers()
	r.registerInvitations()
	r.registerWidget()
	r.registerBootstrap()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerMembers() {
	h := &MembersHandler{MemberService: r.MemberService}

	// GET /v1/members - lenient rate limit (dashboard polls the directory)
	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.signer),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	// PATCH /v1/members/{id}/role - moderate rate limit (admin write)
	securedChangeRole := httpx.Chain(http.HandlerFunc(h.HandleChangeRole),
		httpx.AuthnMiddleware(r.signer),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/members", securedList)
	r.Mux.Handle("PATCH /v1/members/{id}/role", securedChangeRole)
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{InviteService: r.InviteService}

	securedCreate := httpx.Chain(http.HandlerFunc(h.HandleCreate),
		httpx.AuthnMiddleware(r.signer),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedResend := httpx.Chain(http.HandlerFunc(h.HandleResend),
		httpx.AuthnMiddleware(r.signer),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedRevoke := httpx.Chain(http.HandlerFunc(h.HandleRevoke),
		httpx.AuthnMiddleware(r.signer),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("POST /v1/invitations", securedCreate)
	r.Mux.Handle("POST /v1/invitations/{id}/resend", securedResend)
	r.Mux.Handle("DELETE /v1/invitations/{id}", securedRevoke)

	// POST /v1/invitations/accept - strict rate limit by IP (public
	// endpoint; the token is the credential)
	acceptHandler := &AcceptHandler{InviteService: r.InviteService}
	r.Mux.Handle("POST /v1/invitations/accept",
		httpx.Chain(acceptHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerWidget() {
	configHandler := &WidgetConfigHandler{Store: r.store}

	// Widget traffic is public and high-volume; the gate does the
	// credential work and the rate limit only caps abuse per IP.
	gated := httpx.Chain(configHandler,
		WidgetGateMiddleware(r.WidgetGate),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)

	r.Mux.Handle("GET /v1/widget/config", gated)
	r.Mux.Handle("OPTIONS /v1/widget/config", gated)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{
		BootstrapService: r.BootstrapService,
		Signer:           r.signer,
	}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}

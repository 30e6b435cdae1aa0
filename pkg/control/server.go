package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/small-frappuccino/guildsettings/internal/cache"
	"github.com/small-frappuccino/guildsettings/pkg/guildlock"
	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// Locks is the part of guildlock.Locker the control server needs.
type Locks interface {
	Snapshot() []guildlock.Holder
	ForceRelease(guildID string) (guildlock.Holder, bool)
	TTL() time.Duration
}

// CacheInvalidator drops a guild's cached settings so the next read goes to
// the store.
type CacheInvalidator interface {
	InvalidateGuild(guildID string) int
}

// Options wires the server to the running services. Nil fields disable the
// matching routes.
type Options struct {
	Locks   Locks
	Cache   cache.StatsProvider
	// Invalidate enables DELETE /v1/cache/{guildID}, for stores edited by hand.
	Invalidate CacheInvalidator
	Metrics    http.Handler
	// OnForceRelease runs after an operator frees a lock, so an open menu can be closed.
	OnForceRelease func(guildlock.Holder)
	Now            func() time.Time
}

// Server exposes operational controls for a running guildsettings instance.
type Server struct {
	addr       string
	opts       Options
	httpServer *http.Server
	listener   net.Listener
}

type lockView struct {
	GuildID    string    `json:"guild_id"`
	OwnerID    string    `json:"owner_id"`
	FlowID     string    `json:"flow_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	HeldFor    string    `json:"held_for"`
	ExpiresIn  string    `json:"expires_in"`
}

type cacheView struct {
	cache.Stats
	TTL         string `json:"ttl"`
	LastCleanup string `json:"last_cleanup_human"`
}

type invalidateView struct {
	GuildID string `json:"guild_id"`
	Dropped int    `json:"dropped"`
}

type errorView struct {
	Error string `json:"error"`
}

// NewServer returns nil if addr is empty.
func NewServer(addr string, opts Options) *Server {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{addr: addr, opts: opts}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		if s.opts.Locks != nil {
			r.Get("/locks", s.handleListLocks)
			r.Delete("/locks/{guildID}", s.handleReleaseLock)
		}
		if s.opts.Cache != nil {
			r.Get("/cache", s.handleCacheStats)
		}
		if s.opts.Invalidate != nil {
			r.Delete("/cache/{guildID}", s.handleInvalidateCache)
		}
	})
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	return mux
}

// Start opens the control server listening socket.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind control server: %w", err)
	}
	s.listener = ln

	log.ApplicationLogger().Info("Control server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ApplicationLogger().Error("Control server stopped unexpectedly", "err", err)
		}
	}()

	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts down the control server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown control server: %w", err)
	}

	log.ApplicationLogger().Info("Control server stopped", "addr", s.addr)
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleListLocks(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Now()
	holders := s.opts.Locks.Snapshot()
	out := make([]lockView, 0, len(holders))
	for _, h := range holders {
		out = append(out, s.lockView(h, now))
	}
	render.JSON(w, r, out)
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	guildID := strings.TrimSpace(chi.URLParam(r, "guildID"))
	h, ok := s.opts.Locks.ForceRelease(guildID)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorView{Error: fmt.Sprintf("no configuration lock held for guild %s", guildID)})
		return
	}

	log.ApplicationLogger().Warn("Configuration lock force-released",
		"guildID", h.GuildID, "userID", h.UserID, "flowID", h.Token, "remote", r.RemoteAddr)
	if s.opts.OnForceRelease != nil {
		s.opts.OnForceRelease(h)
	}
	render.JSON(w, r, s.lockView(h, s.opts.Now()))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st := s.opts.Cache.Stats()
	view := cacheView{Stats: st, TTL: st.DefaultTTL.String(), LastCleanup: "never"}
	if !st.LastCleanup.IsZero() {
		view.LastCleanup = humanize.RelTime(st.LastCleanup, s.opts.Now(), "ago", "from now")
	}
	render.JSON(w, r, view)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	guildID := strings.TrimSpace(chi.URLParam(r, "guildID"))
	dropped := s.opts.Invalidate.InvalidateGuild(guildID)
	log.ApplicationLogger().Info("Settings cache invalidated by operator",
		"guildID", guildID, "entries", dropped, "remote", r.RemoteAddr)
	render.JSON(w, r, invalidateView{GuildID: guildID, Dropped: dropped})
}

func (s *Server) lockView(h guildlock.Holder, now time.Time) lockView {
	expires := h.ExpiresAt
	if expires.IsZero() {
		expires = h.AcquiredAt.Add(s.opts.Locks.TTL())
	}
	return lockView{
		GuildID:    h.GuildID,
		OwnerID:    h.UserID,
		FlowID:     h.Token,
		AcquiredAt: h.AcquiredAt,
		HeldFor:    strings.TrimSpace(humanize.RelTime(h.AcquiredAt, now, "", "")),
		ExpiresIn:  strings.TrimSpace(humanize.RelTime(now, expires, "", "overdue")),
	}
}

// Package server is the admin/operator HTTP surface: registry inspection and hot reload, call-record
// history, call simulation against devprovider, and encryption-key
// rotation. It never sits in the call-handling path itself — that
// path is driven by the telephony adapter calling engine.HandleCall
// directly.
package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rakunlabs/ada"

	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/rakunlabs/ivrflow/internal/cluster"
	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/ivr/engine"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/store"
)

// Server is the admin HTTP surface bound to one running Engine.
type Server struct {
	config config.Server
	server *ada.Server

	engine *engine.Engine
	store  store.Storer

	flowFiles registry.Files

	// cluster is nil in single-instance mode.
	cluster *cluster.Cluster

	// encKey is the active call-record-at-rest encryption key, nil when
	// encryption is disabled. Guarded by reloading the whole *[]byte
	// value atomically so RotateKeyAPI and engine calls never race.
	encKey atomic.Pointer[[]byte]

	// version is the registry's reload counter, incremented by every
	// successful reload.
	version atomic.Int64
}

// New builds a Server wired to eng (the running call engine), st (the
// operator audit store), and cl (nil when clustering is disabled).
func New(cfg config.Server, eng *engine.Engine, st store.Storer, cl *cluster.Cluster, flowFiles registry.Files, encKey []byte) *Server {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(config.Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		config:    cfg,
		server:    mux,
		engine:    eng,
		store:     st,
		cluster:   cl,
		flowFiles: flowFiles,
	}
	s.version.Store(int64(eng.Registry().Version()))
	s.encKey.Store(&encKey)

	apiGroup := mux.Group("/api")

	apiGroup.GET("/v1/info", s.InfoAPI)
	apiGroup.GET("/v1/registry", s.RegistryAPI)
	apiGroup.POST("/v1/registry/reload", s.ReloadAPI)

	apiGroup.GET("/v1/calls", s.ListCallsAPI)
	apiGroup.POST("/v1/calls/simulate", s.SimulateCallAPI)

	settingsGroup := apiGroup.Group("/v1/settings")
	settingsGroup.Use(s.adminAuthMiddleware())
	settingsGroup.POST("/rotate-key", s.RotateKeyAPI)

	return s
}

// Start serves the admin API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.config.Host, s.config.Port))
}

// adminAuthMiddleware protects the settings group with a bearer token
// matching config.Server.AdminToken. With no token configured, every
// request to the group is rejected — there is no "open by default"
// path to the key-rotation endpoint.
func (s *Server) adminAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.config.AdminToken == "" {
				httpResponse(w, "admin token not configured", http.StatusForbidden)
				return
			}

			auth := r.Header.Get("Authorization")
			token := strings.TrimPrefix(auth, "Bearer ")
			if auth == "" || token == auth || token != s.config.AdminToken {
				httpResponse(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

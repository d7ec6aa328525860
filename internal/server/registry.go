package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/store"
)

// ─── Info API ───

type infoResponse struct {
	Version        int64 `json:"version"`
	StartNodeID    int   `json:"start_node_id"`
	AgentCount     int   `json:"agent_count"`
	ClusterEnabled bool  `json:"cluster_enabled"`
}

// InfoAPI handles GET /api/v1/info: process-wide status summary.
func (s *Server) InfoAPI(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()

	httpResponseJSON(w, infoResponse{
		Version:        s.version.Load(),
		StartNodeID:    reg.StartNode().ID,
		AgentCount:     len(reg.Agents()),
		ClusterEnabled: s.cluster != nil,
	}, http.StatusOK)
}

// ─── Registry API ───

type registryResponse struct {
	Version             int64                        `json:"version"`
	StartNodeID         int                          `json:"start_node_id"`
	Agents              []registry.AgentRosterEntry  `json:"agents"`
	UnavailabilityAudio string                        `json:"unavailability_audio,omitempty"`
}

// RegistryAPI handles GET /api/v1/registry: a read-only snapshot of
// the currently active flow graph's metadata.
func (s *Server) RegistryAPI(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()

	httpResponseJSON(w, registryResponse{
		Version:             s.version.Load(),
		StartNodeID:         reg.StartNode().ID,
		Agents:              reg.Agents(),
		UnavailabilityAudio: reg.UnavailabilityAudio(),
	}, http.StatusOK)
}

// ReloadAPI handles POST /api/v1/registry/reload: re-reads the flow
// graph and API catalog from disk, swaps them into the running
// engine, records the outcome, and — when clustering is enabled —
// broadcasts the new version to every peer.
func (s *Server) ReloadAPI(w http.ResponseWriter, r *http.Request) {
	nextVersion := s.version.Add(1)

	reg, loadErr := registry.Load(s.flowFiles, int(nextVersion))

	rec := store.ReloadRecord{
		ID:      ulid.Make().String(),
		Version: int(nextVersion),
		Source:  "admin-api",
		At:      time.Now(),
	}

	if loadErr != nil {
		s.version.Add(-1)
		rec.Error = loadErr.Error()
		if s.store != nil {
			if err := s.store.RecordReload(r.Context(), rec); err != nil {
				slog.Warn("server: failed to record failed reload", "error", err)
			}
		}
		httpResponse(w, fmt.Sprintf("reload failed: %v", loadErr), http.StatusBadRequest)
		return
	}

	s.engine.Reload(reg)

	if s.store != nil {
		if err := s.store.RecordReload(r.Context(), rec); err != nil {
			slog.Warn("server: failed to record reload", "error", err)
		}
	}

	if s.cluster != nil {
		if err := s.cluster.BroadcastReload(r.Context(), int(nextVersion)); err != nil {
			slog.Error("server: reload succeeded locally but peer broadcast failed", "error", err)
		}
	}

	slog.Info("server: registry reloaded", "version", nextVersion)

	httpResponseJSON(w, infoResponse{
		Version:     nextVersion,
		StartNodeID: reg.StartNode().ID,
		AgentCount:  len(reg.Agents()),
	}, http.StatusOK)
}

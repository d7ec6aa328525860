package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rakunlabs/ivrflow/internal/devprovider"
)

// ─── Call History API ───

// ListCallsAPI handles GET /api/v1/calls: the most recent completed
// call outcomes recorded by the engine. ?limit=N caps the result; the store's own default applies
// when omitted.
func (s *Server) ListCallsAPI(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httpResponseJSON(w, []any{}, http.StatusOK)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := s.store.ListCalls(r.Context(), limit)
	if err != nil {
		httpResponse(w, fmt.Sprintf("list calls: %v", err), http.StatusInternalServerError)
		return
	}

	httpResponseJSON(w, records, http.StatusOK)
}

// ─── Call Simulation API ───

type simulateCallRequest struct {
	CallID         string            `json:"call_id"`
	CallerIDNumber string            `json:"caller_id_number"`
	CallerIDName   string            `json:"caller_id_name"`
	DomainName     string            `json:"domain_name"`
	Script         devprovider.Script `json:"script"`
}

type simulateCallResponse struct {
	CallID string   `json:"call_id"`
	Error  string   `json:"error,omitempty"`
	Events []string `json:"events"`
}

// SimulateCallAPI handles POST /api/v1/calls/simulate: drives the live
// engine through one call using devprovider, the only concrete
// provider.Provider this repository ships, so an operator can validate
// a freshly authored flow graph without telephony hardware attached.
func (s *Server) SimulateCallAPI(w http.ResponseWriter, r *http.Request) {
	var req simulateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callID := req.CallID
	if callID == "" {
		callID = "sim-call"
	}

	p := devprovider.New(callID, req.Script)

	runErr := s.engine.HandleCall(r.Context(), p, req.CallerIDNumber, req.CallerIDName, req.DomainName)

	resp := simulateCallResponse{CallID: callID, Events: p.Events}
	if runErr != nil {
		resp.Error = runErr.Error()
	}

	httpResponseJSON(w, resp, http.StatusOK)
}

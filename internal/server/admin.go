package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/store"
)

// ─── Key Rotation API ───

type rotateKeyRequest struct {
	// EncryptionKey is the new encryption passphrase. If empty,
	// encryption is disabled and future call records are stored
	// un-encrypted.
	EncryptionKey string `json:"encryption_key"`
}

// RotateKeyAPI handles POST /api/v1/settings/rotate-key: re-encrypts
// every call_record's stored Error field under a new key. It requires a store backend that implements
// store.KeyRotator — the in-memory store does not, since it never
// persists anything across a restart in the first place.
func (s *Server) RotateKeyAPI(w http.ResponseWriter, r *http.Request) {
	rotator, ok := s.store.(store.KeyRotator)
	if !ok {
		httpResponse(w, "encryption key rotation is not supported by the current store", http.StatusBadRequest)
		return
	}

	var req rotateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	var newKey []byte
	if req.EncryptionKey != "" {
		var err error
		newKey, err = crypto.DeriveKey(req.EncryptionKey)
		if err != nil {
			httpResponse(w, fmt.Sprintf("invalid encryption key: %v", err), http.StatusBadRequest)
			return
		}
	}

	oldKeyPtr := s.encKey.Load()
	var oldKey []byte
	if oldKeyPtr != nil {
		oldKey = *oldKeyPtr
	}

	if s.cluster != nil {
		if err := s.cluster.LockReload(r.Context()); err != nil {
			slog.Error("server: failed to acquire distributed lock for key rotation", "error", err)
			httpResponse(w, fmt.Sprintf("failed to acquire distributed lock: %v", err), http.StatusServiceUnavailable)
			return
		}
		defer func() {
			if err := s.cluster.UnlockReload(); err != nil {
				slog.Error("server: failed to release distributed lock", "error", err)
			}
		}()
	}

	if err := rotator.RotateKey(r.Context(), oldKey, newKey); err != nil {
		slog.Error("server: encryption key rotation failed", "error", err)
		httpResponse(w, fmt.Sprintf("key rotation failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.encKey.Store(&newKey)

	httpResponse(w, "encryption key rotated successfully", http.StatusOK)
}

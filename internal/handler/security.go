package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// apiKeyHeader carries the admin API key on protected routes.
const apiKeyHeader = "api_key"

// requireAPIKey authenticates admin requests by computing the HMAC-SHA256 of
// the provided API key, looking it up in the repository, and performing a
// constant-time comparison to prevent timing attacks.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)
		hexHash := hex.EncodeToString(hash)

		info, err := h.apikeys.FindByHash(r.Context(), hexHash)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded — the stored hash could differ
		// from what we computed if the repository returns a stale/wrong row.
		storedBytes, err := hex.DecodeString(info.KeyHash)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		zctx.From(r.Context()).Debug("api key accepted", zap.String("key_name", info.Name))
		next.ServeHTTP(w, r)
	})
}

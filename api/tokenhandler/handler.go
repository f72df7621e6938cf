package tokenhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ledger-signer/api"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/metrics"
	"github.com/ruteri/ledger-signer/registry"
)

// Handler serves a registry snapshot over HTTP.
type Handler struct {
	snapshot  *registry.Snapshot
	contentID string
	metrics   *metrics.MetricsServer
	log       *slog.Logger
}

// NewHandler creates a handler for snapshot. The snapshot is read-only, so
// the handler is safe for concurrent requests.
func NewHandler(snapshot *registry.Snapshot, log *slog.Logger) *Handler {
	return &Handler{
		snapshot: snapshot,
		log:      log,
	}
}

// WithMetrics records lookups on m.
func (h *Handler) WithMetrics(m *metrics.MetricsServer) *Handler {
	h.metrics = m
	m.SetRegistryTokens(h.snapshot.Len())
	return h
}

// WithContentID reports the storage content id of the snapshot in the
// root endpoint.
func (h *Handler) WithContentID(id interfaces.ContentID) *Handler {
	h.contentID = id.String()
	return h
}

// RegisterRoutes mounts:
//   - GET /api/public/tokens
//   - GET /api/public/tokens/root
//   - GET /api/public/tokens/{token_id}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/public/tokens", h.HandleTokens)
	r.Get("/api/public/tokens/root", h.HandleRoot)
	r.Get("/api/public/tokens/{token_id}", h.HandleToken)
}

// HandleTokens returns every token of the snapshot in registry order.
func (h *Handler) HandleTokens(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, api.TokenListResponse{
		Root:   h.snapshot.Root().String(),
		Tokens: h.snapshot.Tokens(),
	})
}

// HandleRoot returns the merkle root clients pin.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, api.RootResponse{
		Root:      h.snapshot.Root().String(),
		Tokens:    h.snapshot.Len(),
		ContentID: h.contentID,
	})
}

// HandleToken returns one token with its proof.
//
// Status codes:
//   - 200 OK: token found
//   - 400 Bad Request: token id is not 32 bytes of hex
//   - 404 Not Found: token is not in the snapshot or has no proof
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	rawID := r.PathValue("token_id")
	id, err := interfaces.NewTokenIDFromHex(rawID)
	if err != nil {
		h.metrics.RecordTokenLookup("invalid")
		h.log.Debug("Invalid token id", "err", err, slog.String("tokenID", rawID))
		http.Error(w, "Invalid token id", http.StatusBadRequest)
		return
	}

	token, found := h.snapshot.Lookup(id.String())
	proof, hasProof := h.snapshot.ProofFor(id.String())
	if !found || !hasProof {
		h.metrics.RecordTokenLookup("unknown")
		http.Error(w, "Token not found", http.StatusNotFound)
		return
	}

	h.metrics.RecordTokenLookup("found")
	h.writeJSON(w, api.TokenResponse{
		Token: token,
		Proof: proof,
		Root:  h.snapshot.Root().String(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

package tokenhandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ledger-signer/api"
	"github.com/ruteri/ledger-signer/common"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/metrics"
	"github.com/ruteri/ledger-signer/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdtID = "27b8b7b380933ba313c99abc09c56b2b047cfb608c7141305fbb417dfeade922"
	apadID = "378a194d8fea2bba9abc16a62eae3278117a348be036117fc0bd0b854b438789"
)

func setupHandler(t *testing.T) (*registry.Snapshot, http.Handler) {
	snapshot, err := registry.LoadFile(filepath.Join("..", "..", "registry", "testdata", "snapshot.json"))
	require.NoError(t, err)

	m, err := metrics.New("test", "")
	require.NoError(t, err)

	handler := NewHandler(snapshot, common.DiscardLogger()).
		WithMetrics(m).
		WithContentID(interfaces.ComputeID([]byte("snapshot")))

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	return snapshot, mux
}

func TestHandleTokens(t *testing.T) {
	snapshot, mux := setupHandler(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/public/tokens", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.TokenListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, snapshot.Root().String(), resp.Root)
	assert.Equal(t, snapshot.Tokens(), resp.Tokens)
}

func TestHandleRoot(t *testing.T) {
	snapshot, mux := setupHandler(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/public/tokens/root", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.RootResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, snapshot.Root().String(), resp.Root)
	assert.Equal(t, 7, resp.Tokens)
	assert.Equal(t, interfaces.ComputeID([]byte("snapshot")).String(), resp.ContentID)
}

func TestHandleToken(t *testing.T) {
	snapshot, mux := setupHandler(t)

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{name: "known token", id: usdtID, status: http.StatusOK},
		{name: "upper case with prefix", id: "0x" + strings.ToUpper(usdtID), status: http.StatusOK},
		{name: "unknown token", id: strings.Repeat("ab", 32), status: http.StatusNotFound},
		{name: "short id", id: "abcd", status: http.StatusBadRequest},
		{name: "not hex", id: strings.Repeat("zz", 32), status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/public/tokens/"+tt.id, nil))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var resp api.TokenResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "USDT", resp.Token.Symbol)
			assert.NoError(t, snapshot.Verify(resp.Token, resp.Proof))
		})
	}
}

func TestFetchToken(t *testing.T) {
	snapshot, mux := setupHandler(t)
	server := httptest.NewServer(mux)
	defer server.Close()

	token, proof, err := FetchToken(server.URL, apadID, snapshot.Root())
	require.NoError(t, err)
	assert.Equal(t, "APAD", token.Symbol)
	assert.Len(t, proof, 2*merkle.HashSize)

	_, _, err = FetchToken(server.URL, strings.Repeat("ab", 32), snapshot.Root())
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, _, err = FetchToken(server.URL, usdtID, merkle.Hash{0x01})
	assert.ErrorIs(t, err, interfaces.ErrInvalidProof)

	_, _, err = FetchToken(server.URL, "abcd", snapshot.Root())
	assert.ErrorIs(t, err, interfaces.ErrInvalidTokenID)

	root, err := FetchRoot(server.URL)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Root().String(), root.Root)

	list, err := FetchTokens(server.URL)
	require.NoError(t, err)
	assert.Len(t, list.Tokens, 7)
}

func TestFetchToken_TamperedServer(t *testing.T) {
	snapshot, mux := setupHandler(t)

	tampering := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, r)

		var resp api.TokenResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		resp.Token.Decimals = 2
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	server := httptest.NewServer(tampering)
	defer server.Close()

	_, _, err := FetchToken(server.URL, usdtID, snapshot.Root())
	assert.ErrorIs(t, err, interfaces.ErrInvalidProof)
}

func TestFetchToken_WrongTokenReturned(t *testing.T) {
	snapshot, mux := setupHandler(t)

	swapping := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = "/api/public/tokens/" + apadID
		mux.ServeHTTP(w, r)
	})
	server := httptest.NewServer(swapping)
	defer server.Close()

	_, _, err := FetchToken(server.URL, usdtID, snapshot.Root())
	assert.ErrorIs(t, err, interfaces.ErrInvalidProof)
	assert.ErrorContains(t, err, "server returned token")
}

package tokenhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ruteri/ledger-signer/api"
	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/ruteri/ledger-signer/merkle"
	"github.com/ruteri/ledger-signer/tokens"
)

// ErrTokenNotFound is returned by FetchToken when the server does not know
// the token.
var ErrTokenNotFound = errors.New("token not found")

// FetchToken retrieves a token and its proof from a registry server and
// verifies the proof against root, which the caller pinned out of band.
// Only verified metadata is returned.
func FetchToken(url string, tokenID string, root merkle.Hash) (tokens.TokenMetadata, []byte, error) {
	id, err := interfaces.NewTokenIDFromHex(tokenID)
	if err != nil {
		return tokens.TokenMetadata{}, nil, err
	}

	var resp api.TokenResponse
	if err := getJSON(fmt.Sprintf("%s/api/public/tokens/%s", url, id), &resp); err != nil {
		return tokens.TokenMetadata{}, nil, err
	}

	returned, err := resp.Token.ID()
	if err != nil {
		return tokens.TokenMetadata{}, nil, err
	}
	if !returned.Equal(id) {
		return tokens.TokenMetadata{}, nil, fmt.Errorf("%w: server returned token %s for %s", interfaces.ErrInvalidProof, returned, id)
	}

	record, err := tokens.SerializeSingle(resp.Token)
	if err != nil {
		return tokens.TokenMetadata{}, nil, err
	}
	if err := merkle.Verify(record, resp.Proof, root); err != nil {
		return tokens.TokenMetadata{}, nil, fmt.Errorf("token %s: %w", id, err)
	}

	return resp.Token, resp.Proof, nil
}

// FetchRoot returns the root a registry server claims to serve.
func FetchRoot(url string) (*api.RootResponse, error) {
	var resp api.RootResponse
	if err := getJSON(fmt.Sprintf("%s/api/public/tokens/root", url), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchTokens lists the tokens a registry server serves. The list is not
// verified; use FetchToken for anything passed to a signer.
func FetchTokens(url string) (*api.TokenListResponse, error) {
	var resp api.TokenListResponse
	if err := getJSON(fmt.Sprintf("%s/api/public/tokens", url), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func getJSON(url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrTokenNotFound
	default:
		return fmt.Errorf("registry returned error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peersync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prasangapokharel/phnd/internal/chain"
)

// HTTPTransport implements Transport over plain HTTP/JSON:
// POST /get_blockchain and POST /submit_block.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport using the given client, or
// http.DefaultClient if client is nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{Client: client}
}

type getBlockchainResponse struct {
	Blockchain []*chain.Block `json:"blockchain"`
	Length     int            `json:"length"`
}

// FetchChain requests peerURL's full chain.
func (t *HTTPTransport) FetchChain(ctx context.Context, peerURL string) ([]*chain.Block, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL+"/get_blockchain", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peersync: peer %s returned status %d", peerURL, resp.StatusCode)
	}
	var out getBlockchainResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("peersync: decode chain from %s: %w", peerURL, err)
	}
	return out.Blockchain, nil
}

type submitBlockRequest struct {
	Block *chain.Block `json:"block"`
}

// SubmitBlock gossips block to peerURL.
func (t *HTTPTransport) SubmitBlock(ctx context.Context, peerURL string, block *chain.Block) error {
	body, err := json.Marshal(submitBlockRequest{Block: block})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL+"/submit_block", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peersync: peer %s rejected block with status %d", peerURL, resp.StatusCode)
	}
	return nil
}

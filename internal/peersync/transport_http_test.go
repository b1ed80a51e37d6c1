// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peersync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportFetchChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_blockchain", r.URL.Path)
		_ = json.NewEncoder(w).Encode(getBlockchainResponse{
			Blockchain: []*chain.Block{{Index: 0, Hash: "genesis-hash"}},
			Length:     1,
		})
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.Client())
	blocks, err := transport.FetchChain(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, "genesis-hash", blocks[0].Hash)
}

func TestHTTPTransportFetchChainNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.Client())
	_, err := transport.FetchChain(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestHTTPTransportSubmitBlock(t *testing.T) {
	var received submitBlockRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit_block", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.Client())
	err := transport.SubmitBlock(context.Background(), srv.URL, &chain.Block{Index: 1, Hash: "block-1-hash"})
	require.NoError(t, err)
	require.Equal(t, "block-1-hash", received.Block.Hash)
}

func TestHTTPTransportSubmitBlockRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	transport := NewHTTPTransport(srv.Client())
	err := transport.SubmitBlock(context.Background(), srv.URL, &chain.Block{Index: 1})
	require.Error(t, err)
}

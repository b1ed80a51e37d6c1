// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcserver implements the node's HTTP/JSON wire protocol,
// binding each route to a node facade operation. It owns framing,
// routing, and rate limiting only; every consensus-bearing decision is
// made by the internal/node package this binds to.
package rpcserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/prasangapokharel/phnd/internal/node"
	"github.com/prasangapokharel/phnd/internal/ratelimit"
)

// Logger mirrors node.Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})     {}
func (noopLogger) Warnf(string, ...interface{})     {}
func (noopLogger) Criticalf(string, ...interface{}) {}
func (noopLogger) Debugf(string, ...interface{})    {}

// Server is the HTTP transport binding.
type Server struct {
	node    *node.Node
	limiter *ratelimit.Limiter
	log     Logger
	http    *http.Server
}

// New builds a Server bound to addr, backed by n.
func New(addr string, n *node.Node, log Logger) *Server {
	if log == nil {
		log = noopLogger{}
	}
	s := &Server{
		node:    n,
		limiter: ratelimit.New(ratelimit.DefaultRatePerSecond, ratelimit.DefaultBurst),
		log:     log,
	}
	router := mux.NewRouter()
	router.HandleFunc("/send_tx", s.handleSendTx).Methods(http.MethodPost)
	router.HandleFunc("/submit_block", s.handleSubmitBlock).Methods(http.MethodPost)
	router.HandleFunc("/get_pending", s.handleGetPending).Methods(http.MethodPost)
	router.HandleFunc("/get_blockchain", s.handleGetBlockchain).Methods(http.MethodPost)
	router.HandleFunc("/get_balance", s.handleGetBalance).Methods(http.MethodPost)
	router.HandleFunc("/get_transaction", s.handleGetTransaction).Methods(http.MethodPost)
	router.HandleFunc("/peers", s.handlePeers).Methods(http.MethodPost)
	router.HandleFunc("/add_peer", s.handleAddPeer).Methods(http.MethodPost)
	router.HandleFunc("/mining_info", s.handleMiningInfo).Methods(http.MethodGet)
	router.HandleFunc("/token_info", s.handleTokenInfo).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server; it blocks until the server
// stops or errors.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// rateLimited guards the write and hot-read operations.
func (s *Server) rateLimited(r *http.Request) bool {
	return !s.limiter.Allow(ratelimit.ClientIP(r))
}

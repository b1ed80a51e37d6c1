// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command phnd runs a phnd node: it loads configuration, opens the
// embedded store, bootstraps the owner identity, constructs the node
// facade, and serves the HTTP/JSON transport until told to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/money"
	"github.com/prasangapokharel/phnd/internal/node"
	"github.com/prasangapokharel/phnd/internal/ownerkey"
	"github.com/prasangapokharel/phnd/internal/peersync"
	"github.com/prasangapokharel/phnd/internal/phndcfg"
	"github.com/prasangapokharel/phnd/internal/phndlog"
	"github.com/prasangapokharel/phnd/internal/rpcserver"
	"github.com/prasangapokharel/phnd/internal/store"
)

// process exit codes.
const (
	exitOK            = 0
	exitFatalInitErr  = 1
)

func main() {
	os.Exit(run())
}

func moneyFromFloat(v float64) money.Amount {
	return money.NewFromFloat(v)
}

func run() int {
	opts, err := phndcfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "phnd: config error: %v\n", err)
		return exitFatalInitErr
	}

	if err := phndlog.InitLogRotator(opts.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "phnd: log init error: %v\n", err)
		return exitFatalInitErr
	}
	log := phndlog.Subsystem(phndlog.TagRPC, opts.DebugLevel)

	owner, err := ownerkey.LoadOrGenerate(opts.OwnerFile)
	if err != nil {
		log.Criticalf("owner key bootstrap failed: %v", err)
		return exitFatalInitErr
	}

	st, err := store.Open(opts.LMDBDir)
	if err != nil {
		log.Criticalf("store open failed: %v", err)
		return exitFatalInitErr
	}

	params := chain.Params{
		StartingReward:  moneyFromFloat(opts.StartingReward),
		HalvingInterval: opts.HalvingInterval,
		MinTxFee:        moneyFromFloat(opts.MinTxFee),
		TotalSupply:     moneyFromFloat(opts.TotalSupply),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := node.New(ctx, node.Config{
		Params:     params,
		Store:      st,
		Owner:      owner,
		Transport:  peersync.NewHTTPTransport(&http.Client{}),
		Log:        log,
		MempoolCap: 0,
		MempoolAge: 0,
	})
	if err != nil {
		log.Criticalf("node init failed: %v", err)
		st.Close()
		return exitFatalInitErr
	}
	n.SetBackgroundContext(ctx)

	for _, p := range opts.PeerList() {
		n.Sync.AddPeer(p)
	}

	go n.Sync.Periodic(ctx, 30*time.Second)

	srv := rpcserver.New(opts.Addr(), n, log)
	serveErrs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()
	log.Infof("phnd listening on %s", opts.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Infof("shutdown signal received")
	case err := <-serveErrs:
		log.Criticalf("http server error: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := n.Shutdown(); err != nil {
		log.Criticalf("shutdown flush failed: %v", err)
		return exitFatalInitErr
	}
	return exitOK
}

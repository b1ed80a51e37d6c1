// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package phndlog wires one decred/slog-backed logger per subsystem,
// following the same per-package logger convention dcrd uses (CHAN,
// MEMP, SYNC, STOR, RPCS), fanned out through a single rotating file
// writer.
package phndlog

import (
	"io"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags, one per major component.
const (
	TagChain = "CHAN"
	TagMempool = "MEMP"
	TagSync    = "SYNC"
	TagStore   = "STOR"
	TagRPC     = "RPCS"
)

var (
	backendLog *slog.Backend
	logRotator *rotator.Rotator
)

// InitLogRotator creates the rotating log writer at logFile and points
// every subsystem logger at it plus stdout.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	backendLog = slog.NewBackend(io.MultiWriter(os.Stdout, writerFunc(writeToRotator)))
	return nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func writeToRotator(p []byte) (int, error) {
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// Subsystem returns a new logger for tag on the shared backend, set to
// the given level (one of slog's level strings: "trace", "debug",
// "info", "warn", "error", "critical").
func Subsystem(tag, level string) slog.Logger {
	if backendLog == nil {
		backendLog = slog.NewBackend(os.Stdout)
	}
	log := backendLog.Logger(tag)
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		lvl = slog.LevelInfo
	}
	log.SetLevel(lvl)
	return log
}

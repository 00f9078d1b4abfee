// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/peer"
	"github.com/toole-brendan/pushtx/transport"
)

// logRotator rotates the log file pushtx writes under --logdir (which
// defaults to ~/.pushtx/logs), the same jrick/logrotate wiring this
// repository's lineage uses in its full node daemons.
var logRotator *rotator.Rotator

var backendLog = btclog.NewBackend(logWriter{})

// logWriter forwards writes to both stdout and the active rotator, if any.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	addrLog = backendLog.Logger("ADDR")
	trspLog = backendLog.Logger("TRSP")
	peerLog = backendLog.Logger("PEER")
)

func init() {
	addrmgr.UseLogger(addrLog)
	transport.UseLogger(trspLog)
	peer.UseLogger(peerLog)
}

// initLogRotator opens a rotating log file under logDir. Failures here are
// fatal: a caller who asked for file logging should know immediately if it
// isn't happening.
func initLogRotator(logDir string) error {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile := filepath.Join(logDir, "pushtx.log")
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevel sets the level on every subsystem logger pushtx owns.
func setLogLevel(levelStr string) {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		level = btclog.LevelInfo
	}
	addrLog.SetLevel(level)
	trspLog.SetLevel(level)
	peerLog.SetLevel(level)
}

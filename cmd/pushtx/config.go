// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogDirname  = "logs"
	defaultLogLevel    = "info"
	defaultNetwork     = "mainnet"
	defaultTor         = "off"
	defaultTargetPeers = 10
)

// config defines pushtx's command-line surface.
type config struct {
	ShowVersion bool          `short:"V" long:"version" description:"Display version information and exit"`
	TxFile      string        `short:"f" long:"file" description:"Path to a file of whitespace-separated hex transactions, or - for stdin"`
	Network     string        `long:"network" description:"Bitcoin network: mainnet, testnet, signet, or regtest" default:"mainnet"`
	Tor         string        `long:"tor" description:"SOCKS5 proxy use: off, try, or required" default:"off"`
	Peers       uint16        `long:"peers" description:"Target number of concurrent peer sessions" default:"10"`
	Connect     []string      `long:"connect" description:"Dial only this ip:port instead of DNS-seeded peers; may be given multiple times (required on regtest)"`
	DryRun      bool          `long:"dry-run" description:"Connect and handshake only; never send a transaction"`
	LogDir      string        `long:"logdir" description:"Directory to write log files to"`
	LogLevel    string        `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical, off" default:"info"`
	Deadline    time.Duration `long:"deadline" description:"Global run deadline" default:"60s"`
	MetricsAddr string        `long:"metrics" description:"Address to serve Prometheus metrics on (e.g. 127.0.0.1:9332); disabled if empty"`
}

func defaultConfig() config {
	return config{
		Network:  defaultNetwork,
		Tor:      defaultTor,
		Peers:    defaultTargetPeers,
		LogLevel: defaultLogLevel,
		Deadline: 60 * time.Second,
	}
}

// loadConfig parses the command line, per the jessevdk/go-flags idiom this
// repository's lineage uses throughout its daemons.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.Parse()
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(defaultHomeDir(), defaultLogDirname)
	}

	return &cfg, remaining, nil
}

func defaultHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, ".pushtx")
}

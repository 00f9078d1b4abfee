// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command pushtx broadcasts one or more hex-encoded Bitcoin transactions
// directly onto the P2P network.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/toole-brendan/pushtx/addrmgr"
	"github.com/toole-brendan/pushtx/broadcast"
	"github.com/toole-brendan/pushtx/chaincfg"
	"github.com/toole-brendan/pushtx/txn"
)

const appVersion = "0.1.0"

const (
	exitOK           = 0
	exitUsageError   = 1
	exitNotBroadcast = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}

	if cfg.ShowVersion {
		fmt.Printf("pushtx version %s\n", appVersion)
		return exitOK
	}

	if cfg.LogDir != "" {
		if err := initLogRotator(cfg.LogDir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsageError
		}
	}
	setLogLevel(cfg.LogLevel)

	if cfg.TxFile == "" {
		fmt.Fprintln(os.Stderr, "pushtx: -f <path> is required")
		return exitUsageError
	}

	network, err := chaincfg.ParseNetwork(cfg.Network)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pushtx:", err)
		return exitUsageError
	}

	torMode, err := parseTorMode(cfg.Tor)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pushtx:", err)
		return exitUsageError
	}

	staticPeers, err := parseConnectAddrs(cfg.Connect, chaincfg.ParamsForNetwork(network).DefaultPort)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pushtx:", err)
		return exitUsageError
	}

	src, err := readTxSource(cfg.TxFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pushtx:", err)
		return exitUsageError
	}

	transactions, err := txn.ParseAll(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pushtx: parse error:", err)
		return exitUsageError
	}

	opts := broadcast.DefaultOpts()
	opts.Network = network
	opts.UseTor = torMode
	opts.TargetPeers = cfg.Peers
	opts.DryRun = cfg.DryRun
	opts.GlobalDeadline = cfg.Deadline
	opts.MetricsAddr = cfg.MetricsAddr
	opts.StaticPeers = staticPeers

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	events := broadcast.Run(ctx, transactions, opts)

	var result *broadcast.Result
	for ev := range events {
		printEvent(ev)
		if ev.Kind == broadcast.Done {
			result = ev.Result
		}
	}

	if result == nil {
		fmt.Fprintln(os.Stderr, "pushtx: run ended without a result")
		return exitUsageError
	}
	if result.Err != nil {
		fmt.Fprintln(os.Stderr, "pushtx:", result.Err)
		return exitNotBroadcast
	}
	if len(result.Report.Success) == 0 && !cfg.DryRun {
		return exitNotBroadcast
	}
	return exitOK
}

func parseTorMode(s string) (broadcast.TorMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return broadcast.TorOff, nil
	case "try", "best-effort":
		return broadcast.TorBestEffort, nil
	case "required":
		return broadcast.TorRequired, nil
	default:
		return 0, fmt.Errorf("unknown --tor value %q", s)
	}
}

// parseConnectAddrs turns --connect values into peer addresses. Only IP
// literals are accepted: resolving a hostname here would leak the target to
// a DNS resolver before the transport (and any proxy) is even chosen.
func parseConnectAddrs(raw []string, defaultPort string) ([]addrmgr.PeerAddress, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]addrmgr.PeerAddress, 0, len(raw))
	for _, s := range raw {
		host, portStr, err := net.SplitHostPort(s)
		if err != nil {
			host, portStr = s, defaultPort
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("--connect %q: not an IP literal", s)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("--connect %q: invalid port", s)
		}
		out = append(out, addrmgr.PeerAddress{IP: ip, Port: uint16(port)})
	}
	return out, nil
}

func readTxSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printEvent(ev broadcast.Info) {
	fmt.Fprintln(os.Stderr, ev.String())
}

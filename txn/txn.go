// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txn parses the hex-encoded transactions a caller wants broadcast.
// It deliberately does not validate transaction semantics (script validity,
// signature checks, fee sanity); it only confirms the input is plausibly a
// serialized Bitcoin transaction.
package txn

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxTxSize is the sanity cap on a single parsed transaction's serialized
// size.
const MaxTxSize = 400 * 1024

// ErrorReason tags why Parse rejected an input, for ParseError.
type ErrorReason int

const (
	ReasonEmpty ErrorReason = iota
	ReasonOddLength
	ReasonNotHex
	ReasonTooLarge
)

func (r ErrorReason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty input"
	case ReasonOddLength:
		return "odd-length hex string"
	case ReasonNotHex:
		return "not valid hexadecimal"
	case ReasonTooLarge:
		return "exceeds maximum transaction size"
	default:
		return "unknown"
	}
}

// ParseError reports why a candidate transaction was rejected by Parse.
type ParseError struct {
	Reason ErrorReason
	Input  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("txn: parse error: %s", e.Reason)
}

// Transaction is a transaction accepted for broadcast: its raw serialized
// bytes and the txid computed once at parse time.
type Transaction struct {
	ID  chainhash.Hash
	Raw []byte
}

// Parse decodes a single hex-encoded transaction:
// case-insensitive, tolerant of surrounding whitespace and a trailing
// newline, and rejecting anything that is not plausibly a serialized
// transaction.
func Parse(s string) (Transaction, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Transaction{}, &ParseError{Reason: ReasonEmpty, Input: s}
	}
	if len(trimmed)%2 != 0 {
		return Transaction{}, &ParseError{Reason: ReasonOddLength, Input: s}
	}

	raw, err := hex.DecodeString(strings.ToLower(trimmed))
	if err != nil {
		return Transaction{}, &ParseError{Reason: ReasonNotHex, Input: s}
	}
	if len(raw) > MaxTxSize {
		return Transaction{}, &ParseError{Reason: ReasonTooLarge, Input: s}
	}

	return Transaction{
		ID:  chainhash.DoubleHashH(raw),
		Raw: raw,
	}, nil
}

// ParseAll splits src on whitespace and parses each field as a separate
// transaction, matching the CLI's input format of one or more
// whitespace-separated hex transactions. It stops at the first parse error.
func ParseAll(src string) ([]Transaction, error) {
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return nil, &ParseError{Reason: ReasonEmpty}
	}
	txs := make([]Transaction, 0, len(fields))
	for _, f := range fields {
		tx, err := Parse(f)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

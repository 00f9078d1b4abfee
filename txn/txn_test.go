// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txn

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// a minimal, syntactically plausible legacy transaction: version, 0 inputs,
// 0 outputs, locktime. Not semantically valid, which Parse does not check.
const sampleTxHex = "01000000000000000000"

func TestParseAcceptsLowercaseHex(t *testing.T) {
	tx, err := Parse(sampleTxHex)
	require.NoError(t, err)
	require.Len(t, tx.Raw, len(sampleTxHex)/2)
}

func TestParseIsCaseInsensitive(t *testing.T) {
	lower, err := Parse(sampleTxHex)
	require.NoError(t, err)

	upper, err := Parse(strings.ToUpper(sampleTxHex))
	require.NoError(t, err)

	require.Equal(t, lower.ID, upper.ID)
	require.Equal(t, lower.Raw, upper.Raw)
}

func TestParseTrimsWhitespaceAndNewline(t *testing.T) {
	tx, err := Parse("  " + sampleTxHex + "\n")
	require.NoError(t, err)
	require.Len(t, tx.Raw, len(sampleTxHex)/2)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonEmpty, pe.Reason)
}

func TestParseRejectsOddLength(t *testing.T) {
	_, err := Parse("abc")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonOddLength, pe.Reason)
}

func TestParseRejectsNonHex(t *testing.T) {
	_, err := Parse("zzzz")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonNotHex, pe.Reason)
}

func TestParseRejectsOversized(t *testing.T) {
	oversized := strings.Repeat("00", MaxTxSize+1)
	_, err := Parse(oversized)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonTooLarge, pe.Reason)
}

func TestParseAllSplitsOnWhitespace(t *testing.T) {
	src := sampleTxHex + "\n" + sampleTxHex + " " + sampleTxHex
	txs, err := ParseAll(src)
	require.NoError(t, err)
	require.Len(t, txs, 3)
}

// TestParseIdempotent checks that re-encoding a
// parsed transaction's raw bytes as hex reproduces the lowercased input.
func TestParseIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 512).Draw(t, "n")
		raw := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "raw")
		h := hex.EncodeToString(raw)

		tx, err := Parse(h)
		require.NoError(t, err)
		require.Equal(t, strings.ToLower(h), hex.EncodeToString(tx.Raw))
	})
}

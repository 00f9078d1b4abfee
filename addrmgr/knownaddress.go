// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"math"
	"time"

	"github.com/toole-brendan/pushtx/wire"
)

const (
	// numMissingDays is the number of days before which we assume an
	// address has vanished if we have not seen it.
	numMissingDays = 30

	// numRetries is the number of tries after which we stop trying an
	// address that has never succeeded.
	numRetries = 3

	// maxFailures is the maximum number of failures we will tolerate
	// before we permanently give up on an address that has succeeded in
	// the past.
	maxFailures = 10

	// minBadDays is the number of days since last success after which an
	// address with maxFailures failures is considered bad.
	minBadDays = 7
)

// KnownAddress tracks one peer address we have learned about, plus quality
// bookkeeping used to bias selection toward addresses likely to be
// reachable. It exists because a single DNS resolution pass
// still benefits from deprioritizing addresses this run has already found
// unreachable, without needing the disk-backed tried/new buckets a full
// node uses (nothing persists across runs).
type KnownAddress struct {
	na          *wire.NetAddress
	srcAddr     *wire.NetAddress
	attempts    int
	lastattempt time.Time
	lastsuccess time.Time
	tried       bool
	refs        int
}

// NetAddress returns the wire address record for this known address.
func (ka *KnownAddress) NetAddress() *wire.NetAddress {
	return ka.na
}

// isBad returns true if the address is considered unlikely to be useful,
// either because it looks stale (its advertised timestamp is old) or
// because it has failed too many connection attempts without a single
// success, or has recently stopped succeeding after a long track record.
func (ka *KnownAddress) isBad() bool {
	if ka.lastattempt.After(time.Now().Add(-1 * time.Minute)) {
		return false
	}

	// Over a month old with no corroborating contact.
	if ka.na.Timestamp.Before(time.Now().Add(-numMissingDays * 24 * time.Hour)) {
		return true
	}

	// Never succeeded despite several tries.
	if ka.lastsuccess.IsZero() && ka.attempts >= numRetries {
		return true
	}

	// Used to work, but has failed a lot recently.
	if !ka.lastsuccess.IsZero() &&
		time.Since(ka.lastsuccess) > minBadDays*24*time.Hour &&
		ka.attempts >= maxFailures {
		return true
	}

	return false
}

// chance returns the probability weight of selecting this address for the
// next dial attempt: recently-attempted and repeatedly-failing addresses
// are downweighted geometrically.
func (ka *KnownAddress) chance() float64 {
	c := 1.0

	lastAttempt := time.Since(ka.lastattempt)
	if lastAttempt < 0 {
		lastAttempt = 0
	}
	if lastAttempt < 10*time.Minute {
		c *= 0.01
	}

	attempts := ka.attempts
	if attempts > 8 {
		attempts = 8
	}
	c *= math.Pow(0.66, float64(attempts))

	return c
}

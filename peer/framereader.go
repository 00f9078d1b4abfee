// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"net"

	"github.com/toole-brendan/pushtx/wire"
)

// frameReader incrementally decodes wire frames off a net.Conn. It holds a
// receive buffer bounded by cfg.MaxFrameSize; a frame larger than the cap
// is a protocol failure, not something to buffer through.
type frameReader struct {
	conn net.Conn
	net  wire.BitcoinNet
	pver uint32
	max  uint32
	buf  []byte
}

func newFrameReader(conn net.Conn, btcnet wire.BitcoinNet, pver uint32, max uint32) *frameReader {
	return &frameReader{conn: conn, net: btcnet, pver: pver, max: max}
}

// next blocks until a full frame is available, returning the decoded
// message, or nil with no error if the frame's command was not one this
// package understands (skip and continue).
func (fr *frameReader) next() (wire.Message, error) {
	for {
		res, err := wire.Decode(fr.buf, fr.pver, fr.net, fr.max)
		if err == wire.ErrNeedMore {
			if err := fr.fill(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("peer: %w", err)
		}
		fr.buf = fr.buf[res.Consumed:]
		if res.Msg == nil {
			// Unsupported command: frame fully consumed, keep reading.
			continue
		}
		return res.Msg, nil
	}
}

func (fr *frameReader) fill() error {
	tmp := make([]byte, 4096)
	n, err := fr.conn.Read(tmp)
	if n > 0 {
		fr.buf = append(fr.buf, tmp[:n]...)
	}
	return err
}

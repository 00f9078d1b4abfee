// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/toole-brendan/pushtx/wire"
)

// handshake drives the version/verack exchange. No
// application frame is accepted before verack has been seen in both
// directions.
func (s *Session) handshake(ctx context.Context) error {
	s.setState(StateHandshaking)

	deadline := time.Now().Add(s.cfg.HandshakeTimeout)
	s.conn.SetDeadline(deadline)
	defer s.conn.SetDeadline(time.Time{})

	me := wire.NetAddress{IP: net.IPv4zero, Port: 0}
	you := wire.NetAddress{IP: s.addr.IP, Port: s.addr.Port}
	version := wire.NewMsgVersion(me, you, s.ourNonce, s.cfg.LastBlock)
	version.UserAgent = s.cfg.UserAgent
	version.ProtocolVersion = int32(s.cfg.ProtocolVersion)

	if _, err := wire.Encode(s.conn, version, s.cfg.ProtocolVersion, s.cfg.Net); err != nil {
		if isTimeout(err) {
			return errHandshakeTimeout
		}
		return err
	}

	fr := newFrameReader(s.conn, s.cfg.Net, s.cfg.ProtocolVersion, s.cfg.MaxFrameSize)

	var gotVersion, sentVerack, gotVerack bool
	for !gotVerack || !gotVersion {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return errHandshakeTimeout
		}

		msg, err := fr.next()
		if err != nil {
			if isTimeout(err) {
				return errHandshakeTimeout
			}
			return err
		}

		switch m := msg.(type) {
		case *wire.MsgVersion:
			if m.Nonce == s.ourNonce {
				return errSelfConnect
			}
			gotVersion = true
			if !sentVerack {
				if _, err := wire.Encode(s.conn, &wire.MsgVerAck{}, s.cfg.ProtocolVersion, s.cfg.Net); err != nil {
					if isTimeout(err) {
						return errHandshakeTimeout
					}
					return err
				}
				sentVerack = true
			}
		case *wire.MsgVerAck:
			gotVerack = true
		default:
			// Anything else before the handshake completes is simply
			// ignored; a conforming peer doesn't send it, and this is not
			// a decode failure.
		}
	}

	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

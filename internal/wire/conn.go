// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package wire

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

// RateLimitedConn wraps a net.Conn with a per-connection frame-rate limit,
// so one misbehaving client issuing a tight command loop can't starve the
// operation dispatcher or flood the log socket.
type RateLimitedConn struct {
	net.Conn
	limiter *rate.Limiter
}

// NewRateLimitedConn allows up to framesPerSec frames/sec sustained, with a
// burst of burst frames.
func NewRateLimitedConn(c net.Conn, framesPerSec float64, burst int) *RateLimitedConn {
	return &RateLimitedConn{Conn: c, limiter: rate.NewLimiter(rate.Limit(framesPerSec), burst)}
}

// Wait blocks until the limiter admits one more frame or ctx is done.
func (c *RateLimitedConn) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

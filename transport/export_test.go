// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package transport

import (
	"mellium.im/ymsg/packet"
)

// Enqueue queues p without attempting to write it.
func (c *Conn) Enqueue(p packet.Packet) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	b, err := packet.Append(nil, p)
	if err != nil {
		return err
	}
	c.out.Write(b)
	return nil
}

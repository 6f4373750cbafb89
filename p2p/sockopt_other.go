// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:build !unix

package p2p

import (
	"syscall"
)

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}

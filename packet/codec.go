// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HeaderLen is the size of the fixed packet header.
const HeaderLen = 20

// MaxBodyLen is the largest body that fits in the 16 bit length field.
const MaxBodyLen = 0xffff

var (
	magic = []byte("YMSG")
	sep   = []byte{0xc0, 0x80}
)

// Errors returned by the codec.
var (
	ErrNeedMoreData = errors.New("packet: need more data")
	ErrTooLarge     = errors.New("packet: body exceeds maximum length")
)

// FramingError is returned by Decode when the buffer does not start with a
// packet header.
// Skip bytes can be discarded from the front of the buffer before decoding is
// tried again.
type FramingError struct {
	Skip int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("packet: stream out of sync, skipping %d bytes", e.Skip)
}

// SeparatorError is returned when a field value contains the body separator.
type SeparatorError struct {
	Key int
}

func (e *SeparatorError) Error() string {
	return fmt.Sprintf("packet: value of field %d contains the separator", e.Key)
}

// Encode returns the wire representation of p.
func Encode(p Packet) ([]byte, error) {
	return Append(nil, p)
}

// Append appends the wire representation of p to dst.
// If p cannot be encoded dst is returned unmodified along with an error.
func Append(dst []byte, p Packet) ([]byte, error) {
	bodyLen := 0
	for _, f := range p.Fields {
		if strings.Contains(f.Value, string(sep)) {
			return dst, &SeparatorError{Key: f.Key}
		}
		bodyLen += len(strconv.Itoa(f.Key)) + len(f.Value) + 2*len(sep)
	}
	if bodyLen > MaxBodyLen {
		return dst, ErrTooLarge
	}

	var hdr [HeaderLen]byte
	copy(hdr[:4], magic)
	binary.BigEndian.PutUint16(hdr[4:6], p.Version)
	binary.BigEndian.PutUint16(hdr[6:8], p.Vendor)
	binary.BigEndian.PutUint16(hdr[8:10], uint16(bodyLen))
	binary.BigEndian.PutUint16(hdr[10:12], uint16(p.Service))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(p.Status))
	binary.BigEndian.PutUint32(hdr[16:20], p.ID)

	dst = append(dst, hdr[:]...)
	for _, f := range p.Fields {
		dst = strconv.AppendInt(dst, int64(f.Key), 10)
		dst = append(dst, sep...)
		dst = append(dst, f.Value...)
		dst = append(dst, sep...)
	}
	return dst, nil
}

// Decode decodes the first packet in b and returns it along with the number of
// bytes consumed.
// Decode never reads past the end of b and the returned packet does not
// reference b.
//
// If b holds a partial packet, ErrNeedMoreData is returned.
// If b does not begin with a packet header, a *FramingError is returned that
// reports how many bytes may be dropped to resynchronize.
func Decode(b []byte) (Packet, int, error) {
	if !bytes.HasPrefix(b, magic) {
		if len(b) < len(magic) && bytes.HasPrefix(magic, b) {
			return Packet{}, 0, ErrNeedMoreData
		}
		if i := bytes.Index(b, magic); i > 0 {
			return Packet{}, 0, &FramingError{Skip: i}
		}
		return Packet{}, 0, &FramingError{Skip: discardable(b)}
	}
	if len(b) < HeaderLen {
		return Packet{}, 0, ErrNeedMoreData
	}
	bodyLen := int(binary.BigEndian.Uint16(b[8:10]))
	if len(b)-HeaderLen < bodyLen {
		return Packet{}, 0, ErrNeedMoreData
	}

	p := Packet{
		Version: binary.BigEndian.Uint16(b[4:6]),
		Vendor:  binary.BigEndian.Uint16(b[6:8]),
		Service: Service(binary.BigEndian.Uint16(b[10:12])),
		Status:  Status(int32(binary.BigEndian.Uint32(b[12:16]))),
		ID:      binary.BigEndian.Uint32(b[16:20]),
	}
	p.Fields, _ = ParseBody(b[HeaderLen : HeaderLen+bodyLen])
	return p, HeaderLen + bodyLen, nil
}

// discardable returns the number of leading bytes of b that cannot be part of
// a packet, keeping any trailing bytes that could be the start of the magic.
func discardable(b []byte) int {
	k := len(magic) - 1
	if k > len(b) {
		k = len(b)
	}
	for ; k > 0; k-- {
		if bytes.HasPrefix(magic, b[len(b)-k:]) {
			return len(b) - k
		}
	}
	return len(b)
}

// ParseBody splits a packet body into its fields.
// Pairs with a non-numeric key are skipped and counted, as is a trailing key
// with no value.
func ParseBody(body []byte) (fields []Field, skipped int) {
	for len(body) > 0 {
		key, rest, ok := bytes.Cut(body, sep)
		if !ok || len(rest) == 0 {
			skipped++
			break
		}
		value, rest, _ := bytes.Cut(rest, sep)
		body = rest

		k, err := strconv.Atoi(string(key))
		if err != nil {
			skipped++
			continue
		}
		fields = append(fields, Field{Key: k, Value: string(value)})
	}
	return fields, skipped
}

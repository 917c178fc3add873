// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package wire implements the length-prefixed binary primitives used by the
// SSH2 wire protocol and, by extension, the OpenSSH private key container:
// big-endian uint32s, length-prefixed strings and byte vectors, and mpints.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"unicode/utf8"
)

// Sentinel errors returned by Decoder methods. Callers outside this package
// map these onto their own error taxonomy with errors.Is; wire itself has
// no notion of error "kinds" beyond these five shapes.
var (
	// ErrOverrun means a read ran past the end of the buffer.
	ErrOverrun = errors.New("wire: unexpected end of input")
	// ErrRange means a decoded u32 length does not fit the platform's int
	// range this package is willing to allocate.
	ErrRange = errors.New("wire: length out of range")
	// ErrIncomplete means a LengthPrefixed region was not fully consumed
	// by its callback.
	ErrIncomplete = errors.New("wire: length-prefixed region not fully consumed")
	// ErrUTF8 means a decoded string was not valid UTF-8.
	ErrUTF8 = errors.New("wire: invalid utf-8 in string field")
	// ErrNegativeMpint means an mpint was encoded with its sign bit set;
	// OpenSSH private keys never need a negative mpint.
	ErrNegativeMpint = errors.New("wire: negative mpint not supported")
)

// A Decoder reads length-prefixed primitives from a fixed byte slice.
//
// It tracks a remaining-length counter rather than a cursor into the whole
// buffer, so that length_prefixed sub-decoders can be limited to exactly the
// region they were handed without being able to read past it.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a Decoder that reads from buf.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// RemainingLen returns the number of bytes left to read.
func (d *Decoder) RemainingLen() int { return len(d.buf) }

// IsFinished reports whether every byte has been consumed.
func (d *Decoder) IsFinished() bool { return len(d.buf) == 0 }

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || n > len(d.buf) {
		return nil, ErrOverrun
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b, nil
}

// Raw reads n opaque bytes.
func (d *Decoder) Raw(n int) ([]byte, error) { return d.take(n) }

// Uint32 reads a big-endian uint32.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Usize reads a uint32 and narrows it to int, failing if it exceeds
// math.MaxInt32 (so that it fits an int on every platform).
func (d *Decoder) Usize() (int, error) {
	n, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if uint64(n) > math.MaxInt32 {
		return 0, ErrRange
	}
	return int(n), nil
}

// Bytes reads an SSH string (u32 length + bytes) as a freshly allocated slice.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Usize()
	if err != nil {
		return nil, err
	}
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// String reads an SSH string and validates it as UTF-8.
func (d *Decoder) String() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrUTF8
	}
	return string(b), nil
}

// Mpint reads an SSH mpint: a u32 length followed by a two's-complement,
// big-endian encoded integer. OpenSSH private keys always encode mpints as
// non-negative, so this returns an error on a negative encoding.
func (d *Decoder) Mpint() (*big.Int, error) {
	b, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) > 0 && b[0]&0x80 != 0 {
		return nil, ErrNegativeMpint
	}
	return new(big.Int).SetBytes(b), nil
}

// LengthPrefixed reads a u32 length N, then runs f over a sub-decoder
// limited to exactly N bytes. f must consume the sub-decoder entirely.
func LengthPrefixed[T any](d *Decoder, f func(*Decoder) (T, error)) (T, error) {
	var zero T
	n, err := d.Usize()
	if err != nil {
		return zero, err
	}
	region, err := d.take(n)
	if err != nil {
		return zero, err
	}
	sub := NewDecoder(region)
	v, err := f(sub)
	if err != nil {
		return zero, err
	}
	if !sub.IsFinished() {
		return zero, ErrIncomplete
	}
	return v, nil
}

// An Encoder appends length-prefixed primitives to an in-memory buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with capacity hint n.
func NewEncoder(n int) *Encoder { return &Encoder{buf: make([]byte, 0, n)} }

// Bytes returns the bytes written so far.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Raw appends b as opaque bytes.
func (e *Encoder) Raw(b []byte) { e.buf = append(e.buf, b...) }

// Uint32 appends a big-endian uint32.
func (e *Encoder) Uint32(n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	e.buf = append(e.buf, b[:]...)
}

// Usize appends n as a uint32, failing if it overflows.
func (e *Encoder) Usize(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return ErrRange
	}
	e.Uint32(uint32(n))
	return nil
}

// EncodeBytes appends an SSH string (u32 length + bytes).
func (e *Encoder) EncodeBytes(b []byte) error {
	if err := e.Usize(len(b)); err != nil {
		return err
	}
	e.Raw(b)
	return nil
}

// EncodeString appends an SSH string.
func (e *Encoder) EncodeString(s string) error {
	return e.EncodeBytes([]byte(s))
}

// Mpint appends n as a two's-complement, big-endian SSH mpint. n must be
// non-negative; OpenSSH private keys never need negative mpints.
func (e *Encoder) Mpint(n *big.Int) error {
	if n.Sign() < 0 {
		return ErrNegativeMpint
	}
	if n.Sign() == 0 {
		return e.EncodeBytes(nil)
	}
	b := n.Bytes()
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return e.EncodeBytes(b)
}

// BytesLen returns the encoded length of an SSH string holding b.
func BytesLen(b []byte) int { return 4 + len(b) }

// StringLen returns the encoded length of an SSH string holding s.
func StringLen(s string) int { return 4 + len(s) }

// MpintLen returns the encoded length of n as an SSH mpint.
func MpintLen(n *big.Int) int {
	if n.Sign() == 0 {
		return 4
	}
	b := n.Bytes()
	l := len(b)
	if b[0]&0x80 != 0 {
		l++
	}
	return 4 + l
}

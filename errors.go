// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"errors"
	"fmt"

	"github.com/cloudpines/osshkey/internal/kdf"
	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// Kind classifies the ways decoding, encoding, or encryption of an OpenSSH
// private key can fail.
type Kind int

const (
	// KindPemLabel means the PEM envelope's type label wasn't "OPENSSH PRIVATE KEY".
	KindPemLabel Kind = iota + 1
	// KindFormatEncoding means the container's binary layout was malformed:
	// wrong magic, or padding bytes that don't match the expected prefix.
	KindFormatEncoding
	// KindLength means a stream ran out of bytes, had bytes left over, or a
	// structural count (nkeys, padding length) was out of range.
	KindLength
	// KindAlgorithm means an algorithm name was unrecognized, or an ECDSA
	// curve tag disagreed with the curve named inside the keypair body.
	KindAlgorithm
	// KindPublicKey means a derived public key didn't match the one on file.
	KindPublicKey
	// KindCrypto means the duplicated checkint didn't match (wrong password
	// or corruption), or the cipher/KDF backend itself failed.
	KindCrypto
	// KindEncrypted means an operation that requires a plaintext key was
	// called on an encrypted one.
	KindEncrypted
	// KindDecrypted means an operation that requires ciphertext was called
	// on a plaintext key.
	KindDecrypted
	// KindUtf8 means a comment or algorithm string wasn't valid UTF-8.
	KindUtf8
)

func (k Kind) String() string {
	switch k {
	case KindPemLabel:
		return "pem label"
	case KindFormatEncoding:
		return "format encoding"
	case KindLength:
		return "length"
	case KindAlgorithm:
		return "algorithm"
	case KindPublicKey:
		return "public key"
	case KindCrypto:
		return "crypto"
	case KindEncrypted:
		return "encrypted"
	case KindDecrypted:
		return "decrypted"
	case KindUtf8:
		return "utf8"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package. Every error has a Kind
// that callers can switch on with errors.Is against the Err sentinels
// below, plus an optional wrapped cause for additional context.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("osshkey: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("osshkey: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a Kind sentinel matching e.Kind, so that
// errors.Is(err, osshkey.ErrCrypto) works without exposing *Error fields.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && k.kind == e.Kind
}

type kindSentinel struct{ kind Kind }

func (kindSentinel) Error() string { return "" }

func sentinel(k Kind) error { return kindSentinel{kind: k} }

// Sentinels usable with errors.Is(err, osshkey.ErrXxx).
var (
	ErrPemLabel       = sentinel(KindPemLabel)
	ErrFormatEncoding = sentinel(KindFormatEncoding)
	ErrLength         = sentinel(KindLength)
	ErrAlgorithm      = sentinel(KindAlgorithm)
	ErrPublicKey      = sentinel(KindPublicKey)
	ErrCrypto         = sentinel(KindCrypto)
	ErrEncrypted      = sentinel(KindEncrypted)
	ErrDecrypted      = sentinel(KindDecrypted)
	ErrUtf8           = sentinel(KindUtf8)
)

func errorf(kind Kind, format string, a ...interface{}) error {
	var err error
	if format != "" {
		err = fmt.Errorf(format, a...)
	}
	return &Error{Kind: kind, Err: err}
}

// wrapWireErr maps a raw internal/wire decode error onto this package's
// Kind taxonomy: overruns, out-of-range lengths, and unconsumed
// length-prefixed regions are all spec §7 "Length" failures; invalid UTF-8
// is "Utf8"; a negative mpint is a malformed binary layout ("FormatEncoding").
// Errors already tagged with a Kind (including nil) pass through unchanged,
// so call sites can wrap every decode error without double-wrapping ones
// that were already turned into an *Error closer to their source.
func wrapWireErr(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, wire.ErrUTF8):
		return errorf(KindUtf8, "%v", err)
	case errors.Is(err, wire.ErrNegativeMpint):
		return errorf(KindFormatEncoding, "%v", err)
	case errors.Is(err, wire.ErrOverrun), errors.Is(err, wire.ErrRange), errors.Is(err, wire.ErrIncomplete):
		return errorf(KindLength, "%v", err)
	default:
		return errorf(KindLength, "%v", err)
	}
}

// wrapPublicKeyErr maps a raw publickey-package decode error onto this
// package's Kind taxonomy: an unrecognized algorithm name or ECDSA curve
// tag is "Algorithm", a malformed fixed-size field is "Length", and
// anything else is assumed to have bubbled up from internal/wire and is
// handled by wrapWireErr.
func wrapPublicKeyErr(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, publickey.ErrAlgorithm):
		return errorf(KindAlgorithm, "%v", err)
	case errors.Is(err, publickey.ErrLength):
		return errorf(KindLength, "%v", err)
	default:
		return wrapWireErr(err)
	}
}

// wrapKdfErr maps a raw internal/kdf decode/derive error onto this
// package's Kind taxonomy: an unrecognized KDF name is a malformed binary
// layout ("FormatEncoding"), deriving from the "none" KDF or a bcrypt
// failure is "Crypto", and internal/wire decode errors are handled by
// wrapWireErr.
func wrapKdfErr(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, kdf.ErrUnknownName):
		return errorf(KindFormatEncoding, "%v", err)
	case errors.Is(err, kdf.ErrNoneKdf):
		return errorf(KindCrypto, "%v", err)
	case errors.Is(err, wire.ErrOverrun), errors.Is(err, wire.ErrRange), errors.Is(err, wire.ErrIncomplete),
		errors.Is(err, wire.ErrUTF8), errors.Is(err, wire.ErrNegativeMpint):
		return wrapWireErr(err)
	default:
		return errorf(KindCrypto, "%v", err)
	}
}

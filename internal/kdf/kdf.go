// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package kdf implements the OpenSSH private-key KDF header (none or
// bcrypt-pbkdf) and derivation of a cipher key and IV from a password.
package kdf

import (
	"errors"
	"fmt"
	"io"

	"github.com/dchest/bcrypt_pbkdf"

	"github.com/cloudpines/osshkey/internal/cipher"
	"github.com/cloudpines/osshkey/internal/wire"
)

// ErrUnknownName is returned by Decode for a KDF name other than "none" or
// "bcrypt".
var ErrUnknownName = errors.New("kdf: unknown kdf name")

// ErrNoneKdf is returned by DeriveKeyAndIV when called on the None KDF.
var ErrNoneKdf = errors.New("kdf: cannot derive from the none KDF")

// DefaultRounds is the bcrypt-pbkdf work factor used by NewBcrypt.
const DefaultRounds = 16

// SaltSize is the length in bytes of a freshly generated bcrypt salt.
const SaltSize = 16

// A Kdf describes how to derive a cipher key and IV from a password. The
// zero value is None, matching an unencrypted key.
type Kdf struct {
	name   string // "" for none, "bcrypt" otherwise
	Salt   []byte
	Rounds uint32
}

// None is the KDF of an unencrypted key.
var None = Kdf{}

// IsNone reports whether k is the "none" KDF.
func (k Kdf) IsNone() bool { return k.name == "" }

// Name returns the SSH wire name of the KDF ("none" or "bcrypt").
func (k Kdf) Name() string {
	if k.name == "" {
		return "none"
	}
	return k.name
}

// NewBcrypt returns a Kdf that derives keys via bcrypt-pbkdf with a fresh
// random salt read from rand, using DefaultRounds.
func NewBcrypt(rand io.Reader) (Kdf, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return Kdf{}, err
	}
	return Kdf{name: "bcrypt", Salt: salt, Rounds: DefaultRounds}, nil
}

// DeriveKeyAndIV derives a (key, iv) pair sized for c by running
// bcrypt-pbkdf over password with k's salt and rounds. It fails if k is
// None; the caller must not call this for an unencrypted key.
func (k Kdf) DeriveKeyAndIV(c cipher.Cipher, password []byte) (key, iv []byte, err error) {
	if k.IsNone() {
		return nil, nil, ErrNoneKdf
	}
	out, err := bcrypt_pbkdf.Key(password, k.Salt, int(k.Rounds), c.KeySize()+c.IVSize())
	if err != nil {
		return nil, nil, err
	}
	return out[:c.KeySize()], out[c.KeySize():], nil
}

func (k Kdf) encodedOptsLen() int {
	if k.IsNone() {
		return 0
	}
	return wire.BytesLen(k.Salt) + 4
}

// EncodedLen returns the wire length of the KDF header: name string plus
// the length-prefixed options blob.
func (k Kdf) EncodedLen() int {
	return wire.StringLen(k.Name()) + 4 + k.encodedOptsLen()
}

func (k Kdf) Encode(e *wire.Encoder) error {
	if err := e.EncodeString(k.Name()); err != nil {
		return err
	}
	if err := e.Usize(k.encodedOptsLen()); err != nil {
		return err
	}
	if k.IsNone() {
		return nil
	}
	if err := e.EncodeBytes(k.Salt); err != nil {
		return err
	}
	e.Uint32(k.Rounds)
	return nil
}

func Decode(d *wire.Decoder) (Kdf, error) {
	name, err := d.String()
	if err != nil {
		return Kdf{}, err
	}
	return wire.LengthPrefixed(d, func(opts *wire.Decoder) (Kdf, error) {
		switch name {
		case "none":
			return None, nil
		case "bcrypt":
			salt, err := opts.Bytes()
			if err != nil {
				return Kdf{}, err
			}
			rounds, err := opts.Uint32()
			if err != nil {
				return Kdf{}, err
			}
			return Kdf{name: "bcrypt", Salt: salt, Rounds: rounds}, nil
		default:
			return Kdf{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
		}
	})
}

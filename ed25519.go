// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"crypto/ed25519"
	"crypto/subtle"

	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// Ed25519Keypair is the body of an "ssh-ed25519" private key: the 32-byte
// public key and the 64-byte private key (32-byte seed || 32-byte public
// key, matching crypto/ed25519.PrivateKey's layout).
type Ed25519Keypair struct {
	PublicKey  [32]byte
	PrivateKey [64]byte
}

// NewEd25519Keypair builds an Ed25519Keypair from a stdlib private key.
func NewEd25519Keypair(priv ed25519.PrivateKey) Ed25519Keypair {
	var k Ed25519Keypair
	copy(k.PublicKey[:], priv.Public().(ed25519.PublicKey))
	copy(k.PrivateKey[:], priv)
	return k
}

// CryptoPrivateKey returns the stdlib representation of the private key.
func (k Ed25519Keypair) CryptoPrivateKey() ed25519.PrivateKey {
	return ed25519.PrivateKey(append([]byte(nil), k.PrivateKey[:]...))
}

func (k Ed25519Keypair) encodedLen() int {
	return wire.BytesLen(k.PublicKey[:]) + wire.BytesLen(k.PrivateKey[:])
}

func (k Ed25519Keypair) encode(e *wire.Encoder) error {
	if err := e.EncodeBytes(k.PublicKey[:]); err != nil {
		return err
	}
	return e.EncodeBytes(k.PrivateKey[:])
}

func decodeEd25519Keypair(d *wire.Decoder) (Ed25519Keypair, error) {
	var k Ed25519Keypair
	pub, err := d.Bytes()
	if err != nil {
		return k, wrapWireErr(err)
	}
	if len(pub) != 32 {
		return k, errorf(KindFormatEncoding, "ed25519 public key must be 32 bytes, got %d", len(pub))
	}
	priv, err := d.Bytes()
	if err != nil {
		return k, wrapWireErr(err)
	}
	if len(priv) != 64 {
		return k, errorf(KindFormatEncoding, "ed25519 private key must be 64 bytes, got %d", len(priv))
	}
	copy(k.PublicKey[:], pub)
	copy(k.PrivateKey[:], priv)
	return k, nil
}

func (k Ed25519Keypair) public() publickey.KeyData {
	return publickey.FromEd25519(publickey.Ed25519KeyData{PublicKey: k.PublicKey})
}

func (k Ed25519Keypair) ctEq(other Ed25519Keypair) bool {
	return subtle.ConstantTimeCompare(k.PrivateKey[:], other.PrivateKey[:]) == 1
}

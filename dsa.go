// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"crypto/dsa"
	"crypto/subtle"
	"math/big"

	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// DsaKeypair is the body of an "ssh-dss" private key: mpint p, q, g, y, x.
type DsaKeypair struct {
	P, Q, G, Y, X *big.Int
}

// NewDsaKeypair builds a DsaKeypair from a stdlib key.
func NewDsaKeypair(priv *dsa.PrivateKey) DsaKeypair {
	return DsaKeypair{
		P: priv.P, Q: priv.Q, G: priv.G,
		Y: priv.Y, X: priv.X,
	}
}

// CryptoPrivateKey returns the stdlib representation of the private key.
func (k DsaKeypair) CryptoPrivateKey() *dsa.PrivateKey {
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: k.P, Q: k.Q, G: k.G},
			Y:          k.Y,
		},
		X: k.X,
	}
}

func (k DsaKeypair) fields() []*big.Int { return []*big.Int{k.P, k.Q, k.G, k.Y, k.X} }

func (k DsaKeypair) encodedLen() int {
	n := 0
	for _, f := range k.fields() {
		n += wire.MpintLen(f)
	}
	return n
}

func (k DsaKeypair) encode(e *wire.Encoder) error {
	for _, f := range k.fields() {
		if err := e.Mpint(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeDsaKeypair(d *wire.Decoder) (DsaKeypair, error) {
	var ints [5]*big.Int
	for i := range ints {
		v, err := d.Mpint()
		if err != nil {
			return DsaKeypair{}, wrapWireErr(err)
		}
		ints[i] = v
	}
	return DsaKeypair{P: ints[0], Q: ints[1], G: ints[2], Y: ints[3], X: ints[4]}, nil
}

func (k DsaKeypair) public() publickey.KeyData {
	return publickey.FromDsa(publickey.DsaKeyData{P: k.P, Q: k.Q, G: k.G, Y: k.Y})
}

func (k DsaKeypair) ctEq(other DsaKeypair) bool {
	ok := 1
	for i, f := range k.fields() {
		ok &= subtle.ConstantTimeCompare(f.Bytes(), other.fields()[i].Bytes())
	}
	return ok == 1
}

// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"crypto/rsa"
	"crypto/subtle"
	"math/big"

	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// RsaKeypair is the body of an "ssh-rsa" private key: mpint n, e, d, iqmp,
// p, q, in that order. Note this is the reverse order of e and n from the
// public key's own wire form (mpint e, mpint n), which is how OpenSSH has
// always laid the two out.
type RsaKeypair struct {
	N    *big.Int
	E    *big.Int
	D    *big.Int
	Iqmp *big.Int // q^-1 mod p, i.e. CRTCoefficient in crypto/rsa terms
	P    *big.Int
	Q    *big.Int
}

// NewRsaKeypair builds an RsaKeypair from a stdlib key, computing iqmp
// (CRTCoefficient) if the key hasn't precomputed it.
func NewRsaKeypair(priv *rsa.PrivateKey) (RsaKeypair, error) {
	if len(priv.Primes) != 2 {
		return RsaKeypair{}, errorf(KindFormatEncoding, "osshkey: only two-prime RSA keys are supported")
	}
	priv.Precompute()
	return RsaKeypair{
		N:    priv.N,
		E:    big.NewInt(int64(priv.E)),
		D:    priv.D,
		Iqmp: priv.Precomputed.Qinv,
		P:    priv.Primes[0],
		Q:    priv.Primes[1],
	}, nil
}

// CryptoPrivateKey returns the stdlib representation of the private key.
func (k RsaKeypair) CryptoPrivateKey() (*rsa.PrivateKey, error) {
	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: k.N, E: int(k.E.Int64())},
		D:         k.D,
		Primes:    []*big.Int{k.P, k.Q},
	}
	priv.Precompute()
	if err := priv.Validate(); err != nil {
		return nil, errorf(KindFormatEncoding, "invalid rsa private key: %v", err)
	}
	return priv, nil
}

func (k RsaKeypair) fields() []*big.Int { return []*big.Int{k.N, k.E, k.D, k.Iqmp, k.P, k.Q} }

func (k RsaKeypair) encodedLen() int {
	n := 0
	for _, f := range k.fields() {
		n += wire.MpintLen(f)
	}
	return n
}

func (k RsaKeypair) encode(e *wire.Encoder) error {
	for _, f := range k.fields() {
		if err := e.Mpint(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeRsaKeypair(d *wire.Decoder) (RsaKeypair, error) {
	var ints [6]*big.Int
	for i := range ints {
		v, err := d.Mpint()
		if err != nil {
			return RsaKeypair{}, wrapWireErr(err)
		}
		ints[i] = v
	}
	return RsaKeypair{N: ints[0], E: ints[1], D: ints[2], Iqmp: ints[3], P: ints[4], Q: ints[5]}, nil
}

func (k RsaKeypair) public() publickey.KeyData {
	return publickey.FromRsa(publickey.RsaKeyData{E: k.E, N: k.N})
}

func (k RsaKeypair) ctEq(other RsaKeypair) bool {
	ok := 1
	for i, f := range k.fields() {
		ok &= subtle.ConstantTimeCompare(f.Bytes(), other.fields()[i].Bytes())
	}
	return ok == 1
}

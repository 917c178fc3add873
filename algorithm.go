// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"github.com/cloudpines/osshkey/internal/wire"
)

// Curve identifies one of the NIST curves used by ECDSA keys.
type Curve string

const (
	CurveP256 Curve = "nistp256"
	CurveP384 Curve = "nistp384"
	CurveP521 Curve = "nistp521"
)

// Algorithm identifies the signature algorithm of a keypair, and for ECDSA
// additionally names the curve.
type Algorithm struct {
	name  string
	curve Curve // only meaningful for the ecdsaNamePrefix variants
}

const (
	algorithmDsaName     = "ssh-dss"
	algorithmRsaName     = "ssh-rsa"
	algorithmEd25519Name = "ssh-ed25519"
	ecdsaNamePrefix      = "ecdsa-sha2-"
)

var (
	AlgorithmDsa     = Algorithm{name: algorithmDsaName}
	AlgorithmRsa     = Algorithm{name: algorithmRsaName}
	AlgorithmEd25519 = Algorithm{name: algorithmEd25519Name}
)

// AlgorithmEcdsa returns the Algorithm for an ECDSA key over the given curve.
func AlgorithmEcdsa(curve Curve) Algorithm {
	return Algorithm{name: ecdsaNamePrefix + string(curve), curve: curve}
}

// Name returns the wire form of the algorithm, e.g. "ssh-ed25519" or
// "ecdsa-sha2-nistp256".
func (a Algorithm) Name() string { return a.name }

// Curve returns the curve for an ECDSA algorithm, or "" otherwise.
func (a Algorithm) Curve() Curve { return a.curve }

// IsEcdsa reports whether a names an ECDSA algorithm.
func (a Algorithm) IsEcdsa() bool { return a.curve != "" }

func (a Algorithm) String() string { return a.name }

// EncodedLen returns the wire length of the algorithm tag: 4 + len(name).
func (a Algorithm) EncodedLen() int { return wire.StringLen(a.name) }

func (a Algorithm) encode(e *wire.Encoder) error {
	return e.EncodeString(a.name)
}

func decodeAlgorithm(d *wire.Decoder) (Algorithm, error) {
	name, err := d.String()
	if err != nil {
		return Algorithm{}, wrapWireErr(err)
	}
	switch name {
	case algorithmDsaName:
		return AlgorithmDsa, nil
	case algorithmRsaName:
		return AlgorithmRsa, nil
	case algorithmEd25519Name:
		return AlgorithmEd25519, nil
	case ecdsaNamePrefix + string(CurveP256):
		return AlgorithmEcdsa(CurveP256), nil
	case ecdsaNamePrefix + string(CurveP384):
		return AlgorithmEcdsa(CurveP384), nil
	case ecdsaNamePrefix + string(CurveP521):
		return AlgorithmEcdsa(CurveP521), nil
	default:
		return Algorithm{}, errorf(KindAlgorithm, "unknown algorithm name %q", name)
	}
}

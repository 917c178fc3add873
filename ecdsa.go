// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/subtle"
	"math/big"

	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// EcdsaKeypair is the body of an "ecdsa-sha2-nistp*" private key: the curve
// name, the uncompressed public point (0x04 || X || Y), and the private
// scalar.
type EcdsaKeypair struct {
	Curve Curve
	Point []byte
	D     *big.Int
}

func ellipticCurve(c Curve) (elliptic.Curve, bool) {
	switch c {
	case CurveP256:
		return elliptic.P256(), true
	case CurveP384:
		return elliptic.P384(), true
	case CurveP521:
		return elliptic.P521(), true
	default:
		return nil, false
	}
}

func curveFor(c elliptic.Curve) (Curve, bool) {
	switch c {
	case elliptic.P256():
		return CurveP256, true
	case elliptic.P384():
		return CurveP384, true
	case elliptic.P521():
		return CurveP521, true
	default:
		return "", false
	}
}

// NewEcdsaKeypair builds an EcdsaKeypair from a stdlib key.
func NewEcdsaKeypair(priv *ecdsa.PrivateKey) (EcdsaKeypair, error) {
	curve, ok := curveFor(priv.Curve)
	if !ok {
		return EcdsaKeypair{}, errorf(KindAlgorithm, "unsupported ecdsa curve")
	}
	return EcdsaKeypair{
		Curve: curve,
		Point: elliptic.Marshal(priv.Curve, priv.X, priv.Y),
		D:     priv.D,
	}, nil
}

// CryptoPrivateKey returns the stdlib representation of the private key.
func (k EcdsaKeypair) CryptoPrivateKey() (*ecdsa.PrivateKey, error) {
	curve, ok := ellipticCurve(k.Curve)
	if !ok {
		return nil, errorf(KindAlgorithm, "unsupported ecdsa curve %q", k.Curve)
	}
	x, y := elliptic.Unmarshal(curve, k.Point)
	if x == nil {
		return nil, errorf(KindFormatEncoding, "invalid ecdsa point encoding")
	}
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         k.D,
	}, nil
}

func (k EcdsaKeypair) encodedLen() int {
	return wire.StringLen(string(k.Curve)) + wire.BytesLen(k.Point) + wire.MpintLen(k.D)
}

func (k EcdsaKeypair) encode(e *wire.Encoder) error {
	if err := e.EncodeString(string(k.Curve)); err != nil {
		return err
	}
	if err := e.EncodeBytes(k.Point); err != nil {
		return err
	}
	return e.Mpint(k.D)
}

func decodeEcdsaKeypair(d *wire.Decoder) (EcdsaKeypair, error) {
	curveName, err := d.String()
	if err != nil {
		return EcdsaKeypair{}, wrapWireErr(err)
	}
	curve := Curve(curveName)
	if _, ok := ellipticCurve(curve); !ok {
		return EcdsaKeypair{}, errorf(KindAlgorithm, "unknown ecdsa curve %q", curveName)
	}
	point, err := d.Bytes()
	if err != nil {
		return EcdsaKeypair{}, wrapWireErr(err)
	}
	dScalar, err := d.Mpint()
	if err != nil {
		return EcdsaKeypair{}, wrapWireErr(err)
	}
	return EcdsaKeypair{Curve: curve, Point: point, D: dScalar}, nil
}

func (k EcdsaKeypair) public() publickey.KeyData {
	return publickey.FromEcdsa(publickey.EcdsaKeyData{
		Curve: publickey.Curve(k.Curve),
		Point: k.Point,
	})
}

func (k EcdsaKeypair) ctEq(other EcdsaKeypair) bool {
	if k.Curve != other.Curve {
		return false
	}
	return subtle.ConstantTimeCompare(k.D.Bytes(), other.D.Bytes()) == 1
}

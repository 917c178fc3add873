// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package publickey implements the public-key half of the SSH KeyData sum
// type: the per-algorithm public components, their wire codec, the
// checkint used to canary-test password-protected private keys, and
// SSH-style key fingerprints. It is a sibling of the private-key package
// rather than nested inside it, the way filippo.io/age keeps filippo.io/
// age/agessh next to filippo.io/age instead of underneath it: both the
// private-key container and any future public-key-only consumer need it.
package publickey

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/cloudpines/osshkey/internal/wire"
)

// Sentinel errors returned by Decode. This package has no Kind taxonomy of
// its own (it is a sibling of the package that does); callers map these
// onto their own error kinds with errors.Is.
var (
	// ErrAlgorithm means the algorithm name, or an ECDSA curve tag within
	// it, was unrecognized or internally inconsistent.
	ErrAlgorithm = errors.New("publickey: unrecognized algorithm")
	// ErrLength means a fixed-size field (e.g. an ed25519 public key)
	// had the wrong length.
	ErrLength = errors.New("publickey: malformed field length")
)

// HashAlg selects the digest used by Fingerprint.
type HashAlg int

const (
	SHA256 HashAlg = iota
	SHA512
)

func (h HashAlg) String() string {
	switch h {
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return "unknown"
	}
}

// Curve identifies a NIST curve used by an ECDSA key.
type Curve string

const (
	CurveP256 Curve = "nistp256"
	CurveP384 Curve = "nistp384"
	CurveP521 Curve = "nistp521"
)

// Ed25519KeyData holds an Ed25519 public key.
type Ed25519KeyData struct {
	PublicKey [32]byte
}

// RsaKeyData holds an RSA public key. Wire order is (e, n), per RFC 4253,
// which is the reverse of the order used inside the private keypair body.
type RsaKeyData struct {
	E *big.Int
	N *big.Int
}

// DsaKeyData holds a DSA public key.
type DsaKeyData struct {
	P, Q, G, Y *big.Int
}

// EcdsaKeyData holds an ECDSA public key: the curve and the uncompressed
// point encoding (0x04 || X || Y).
type EcdsaKeyData struct {
	Curve Curve
	Point []byte
}

// tag identifies which arm of KeyData is populated.
type tag int

const (
	tagEd25519 tag = iota
	tagRsa
	tagDsa
	tagEcdsa
)

// KeyData is a tagged union of the public components for each supported
// algorithm, mirroring the arms of the private-side KeypairData sum type
// (minus the Encrypted arm, which has no public projection).
type KeyData struct {
	tag     tag
	ed25519 Ed25519KeyData
	rsa     RsaKeyData
	dsa     DsaKeyData
	ecdsa   EcdsaKeyData
}

func FromEd25519(k Ed25519KeyData) KeyData { return KeyData{tag: tagEd25519, ed25519: k} }
func FromRsa(k RsaKeyData) KeyData         { return KeyData{tag: tagRsa, rsa: k} }
func FromDsa(k DsaKeyData) KeyData         { return KeyData{tag: tagDsa, dsa: k} }
func FromEcdsa(k EcdsaKeyData) KeyData     { return KeyData{tag: tagEcdsa, ecdsa: k} }

func (k KeyData) IsEd25519() bool { return k.tag == tagEd25519 }
func (k KeyData) IsRsa() bool     { return k.tag == tagRsa }
func (k KeyData) IsDsa() bool     { return k.tag == tagDsa }
func (k KeyData) IsEcdsa() bool   { return k.tag == tagEcdsa }

func (k KeyData) Ed25519() (Ed25519KeyData, bool) { return k.ed25519, k.tag == tagEd25519 }
func (k KeyData) Rsa() (RsaKeyData, bool)         { return k.rsa, k.tag == tagRsa }
func (k KeyData) Dsa() (DsaKeyData, bool)         { return k.dsa, k.tag == tagDsa }
func (k KeyData) Ecdsa() (EcdsaKeyData, bool)     { return k.ecdsa, k.tag == tagEcdsa }

// AlgorithmName returns the SSH algorithm name for this key, e.g.
// "ssh-ed25519" or "ecdsa-sha2-nistp256".
func (k KeyData) AlgorithmName() string {
	switch k.tag {
	case tagEd25519:
		return "ssh-ed25519"
	case tagRsa:
		return "ssh-rsa"
	case tagDsa:
		return "ssh-dss"
	case tagEcdsa:
		return "ecdsa-sha2-" + string(k.ecdsa.Curve)
	default:
		return ""
	}
}

// EncodedLen returns the exact number of bytes Encode will write.
func (k KeyData) EncodedLen() int {
	n := wire.StringLen(k.AlgorithmName())
	switch k.tag {
	case tagEd25519:
		n += wire.BytesLen(k.ed25519.PublicKey[:])
	case tagRsa:
		n += wire.MpintLen(k.rsa.E) + wire.MpintLen(k.rsa.N)
	case tagDsa:
		n += wire.MpintLen(k.dsa.P) + wire.MpintLen(k.dsa.Q) + wire.MpintLen(k.dsa.G) + wire.MpintLen(k.dsa.Y)
	case tagEcdsa:
		n += wire.StringLen(string(k.ecdsa.Curve)) + wire.BytesLen(k.ecdsa.Point)
	}
	return n
}

// Encode writes the wire form of the public key: algorithm name followed
// by the algorithm-specific public fields.
func (k KeyData) Encode(e *wire.Encoder) error {
	if err := e.EncodeString(k.AlgorithmName()); err != nil {
		return err
	}
	switch k.tag {
	case tagEd25519:
		return e.EncodeBytes(k.ed25519.PublicKey[:])
	case tagRsa:
		if err := e.Mpint(k.rsa.E); err != nil {
			return err
		}
		return e.Mpint(k.rsa.N)
	case tagDsa:
		for _, n := range []*big.Int{k.dsa.P, k.dsa.Q, k.dsa.G, k.dsa.Y} {
			if err := e.Mpint(n); err != nil {
				return err
			}
		}
		return nil
	case tagEcdsa:
		if err := e.EncodeString(string(k.ecdsa.Curve)); err != nil {
			return err
		}
		return e.EncodeBytes(k.ecdsa.Point)
	default:
		return errors.New("publickey: empty KeyData")
	}
}

// Decode reads a public KeyData from its wire form.
func Decode(d *wire.Decoder) (KeyData, error) {
	name, err := d.String()
	if err != nil {
		return KeyData{}, err
	}
	switch {
	case name == "ssh-ed25519":
		b, err := d.Bytes()
		if err != nil {
			return KeyData{}, err
		}
		if len(b) != 32 {
			return KeyData{}, fmt.Errorf("%w: ed25519 public key must be 32 bytes, got %d", ErrLength, len(b))
		}
		var k Ed25519KeyData
		copy(k.PublicKey[:], b)
		return FromEd25519(k), nil
	case name == "ssh-rsa":
		e, err := d.Mpint()
		if err != nil {
			return KeyData{}, err
		}
		n, err := d.Mpint()
		if err != nil {
			return KeyData{}, err
		}
		return FromRsa(RsaKeyData{E: e, N: n}), nil
	case name == "ssh-dss":
		var ints [4]*big.Int
		for i := range ints {
			v, err := d.Mpint()
			if err != nil {
				return KeyData{}, err
			}
			ints[i] = v
		}
		return FromDsa(DsaKeyData{P: ints[0], Q: ints[1], G: ints[2], Y: ints[3]}), nil
	case len(name) > len("ecdsa-sha2-") && name[:len("ecdsa-sha2-")] == "ecdsa-sha2-":
		curve := Curve(name[len("ecdsa-sha2-"):])
		if curve != CurveP256 && curve != CurveP384 && curve != CurveP521 {
			return KeyData{}, fmt.Errorf("%w: unknown ecdsa curve %q", ErrAlgorithm, curve)
		}
		curveName, err := d.String()
		if err != nil {
			return KeyData{}, err
		}
		if Curve(curveName) != curve {
			return KeyData{}, fmt.Errorf("%w: ecdsa curve tag mismatch", ErrAlgorithm)
		}
		point, err := d.Bytes()
		if err != nil {
			return KeyData{}, err
		}
		return FromEcdsa(EcdsaKeyData{Curve: curve, Point: point}), nil
	default:
		return KeyData{}, fmt.Errorf("%w: unknown algorithm %q", ErrAlgorithm, name)
	}
}

// checkintDomain separates the checkint MAC from any other keyed use of
// SHA-256 over the same public key bytes.
var checkintDomain = []byte("osshkey checkint v1")

// Checkint computes the deterministic 32-bit canary written twice at the
// head of a decrypted private-key blob. It is a function of the public key
// only, so that re-encoding the same key without re-deriving a cipher key
// produces byte-identical output.
func (k KeyData) Checkint() (uint32, error) {
	e := wire.NewEncoder(k.EncodedLen())
	if err := k.Encode(e); err != nil {
		return 0, err
	}
	h := sha256.New()
	h.Write(checkintDomain)
	h.Write(e.Bytes())
	sum := h.Sum(nil)
	return uint32(sum[0])<<24 | uint32(sum[1])<<16 | uint32(sum[2])<<8 | uint32(sum[3]), nil
}

// Equal reports whether k and other encode to the same bytes.
func (k KeyData) Equal(other KeyData) bool {
	if k.tag != other.tag {
		return false
	}
	a, err1 := marshal(k)
	b, err2 := marshal(other)
	if err1 != nil || err2 != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func marshal(k KeyData) ([]byte, error) {
	e := wire.NewEncoder(k.EncodedLen())
	if err := k.Encode(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Fingerprint returns the standard "SHA256:<base64>"-style SSH fingerprint
// of the key.
func (k KeyData) Fingerprint(alg HashAlg) (string, error) {
	b, err := marshal(k)
	if err != nil {
		return "", err
	}
	var sum []byte
	switch alg {
	case SHA512:
		s := sha512.Sum512(b)
		sum = s[:]
	default:
		s := sha256.Sum256(b)
		sum = s[:]
	}
	return alg.String() + ":" + base64.RawStdEncoding.EncodeToString(sum), nil
}

// PublicKey pairs a KeyData with the comment OpenSSH stores alongside the
// private key. The comment lives here, not inside KeypairData, because
// OpenSSH physically stores it inside the encrypted region but this
// package exposes it at the container level regardless of encryption
// state.
type PublicKey struct {
	KeyData KeyData
	Comment string
}

// CommentEncodedLen returns the wire length of the comment string alone (u32
// length prefix plus bytes), as read or written after the keypair body.
func (p *PublicKey) CommentEncodedLen() int { return wire.StringLen(p.Comment) }

// DecodeComment reads the trailing comment string into p.Comment.
func (p *PublicKey) DecodeComment(d *wire.Decoder) error {
	s, err := d.String()
	if err != nil {
		return err
	}
	p.Comment = s
	return nil
}

// EncodeComment writes p.Comment as an SSH string.
func (p *PublicKey) EncodeComment(e *wire.Encoder) error {
	return e.EncodeString(p.Comment)
}

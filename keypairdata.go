// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"crypto/subtle"
	"math/big"

	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// DefaultBlockSize is the nominal padding block size used for unencrypted
// keys, so that their padding still aligns the way an encrypted key's
// would.
const DefaultBlockSize = 8

// MaxBlockSize is the largest cipher block size this package deals with
// (AES's).
const MaxBlockSize = 16

// paddingBytes is the constant sequence 1, 2, 3, ... whose prefix is
// appended to align the private-key region to the cipher's block size.
var paddingBytes = func() [MaxBlockSize - 1]byte {
	var b [MaxBlockSize - 1]byte
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}()

func paddingLen(size, blockSize int) int {
	rem := size % blockSize
	if rem == 0 {
		return 0
	}
	return blockSize - rem
}

// keypairTag identifies which arm of KeypairData is populated.
type keypairTag int

const (
	keypairEd25519 keypairTag = iota
	keypairRsa
	keypairDsa
	keypairEcdsa
	keypairEncrypted
)

// KeypairData is the tagged union of private keypair bodies plus an
// Encrypted arm holding opaque ciphertext. Each non-Encrypted arm carries
// both the secret scalars and the public components needed to recompute
// the checkint and validate against the outer PublicKey.
type KeypairData struct {
	tag       keypairTag
	ed25519   Ed25519Keypair
	rsa       RsaKeypair
	dsa       DsaKeypair
	ecdsa     EcdsaKeypair
	encrypted []byte
}

func KeypairFromEd25519(k Ed25519Keypair) KeypairData { return KeypairData{tag: keypairEd25519, ed25519: k} }
func KeypairFromRsa(k RsaKeypair) KeypairData         { return KeypairData{tag: keypairRsa, rsa: k} }
func KeypairFromDsa(k DsaKeypair) KeypairData         { return KeypairData{tag: keypairDsa, dsa: k} }
func KeypairFromEcdsa(k EcdsaKeypair) KeypairData     { return KeypairData{tag: keypairEcdsa, ecdsa: k} }
func KeypairEncrypted(ciphertext []byte) KeypairData {
	return KeypairData{tag: keypairEncrypted, encrypted: ciphertext}
}

func (k KeypairData) IsEncrypted() bool { return k.tag == keypairEncrypted }
func (k KeypairData) IsEd25519() bool   { return k.tag == keypairEd25519 }
func (k KeypairData) IsRsa() bool       { return k.tag == keypairRsa }
func (k KeypairData) IsDsa() bool       { return k.tag == keypairDsa }
func (k KeypairData) IsEcdsa() bool     { return k.tag == keypairEcdsa }

func (k KeypairData) Ed25519() (Ed25519Keypair, bool) { return k.ed25519, k.tag == keypairEd25519 }
func (k KeypairData) Rsa() (RsaKeypair, bool)         { return k.rsa, k.tag == keypairRsa }
func (k KeypairData) Dsa() (DsaKeypair, bool)         { return k.dsa, k.tag == keypairDsa }
func (k KeypairData) Ecdsa() (EcdsaKeypair, bool)     { return k.ecdsa, k.tag == keypairEcdsa }
func (k KeypairData) Encrypted() ([]byte, bool)       { return k.encrypted, k.tag == keypairEncrypted }

// Algorithm returns the signature algorithm of the key, or a KindEncrypted
// error if the key is still encrypted.
func (k KeypairData) Algorithm() (Algorithm, error) {
	switch k.tag {
	case keypairEd25519:
		return AlgorithmEd25519, nil
	case keypairRsa:
		return AlgorithmRsa, nil
	case keypairDsa:
		return AlgorithmDsa, nil
	case keypairEcdsa:
		return AlgorithmEcdsa(Curve(k.ecdsa.Curve)), nil
	default:
		return Algorithm{}, errorf(KindEncrypted, "key data is encrypted")
	}
}

// publicProjection returns the public key corresponding to this arm, or a
// KindEncrypted error for the Encrypted arm (which has no public
// projection to derive — ciphertext carries no recoverable key material).
func (k KeypairData) publicProjection() (publickey.KeyData, error) {
	switch k.tag {
	case keypairEd25519:
		return k.ed25519.public(), nil
	case keypairRsa:
		return k.rsa.public(), nil
	case keypairDsa:
		return k.dsa.public(), nil
	case keypairEcdsa:
		return k.ecdsa.public(), nil
	default:
		return publickey.KeyData{}, errorf(KindEncrypted, "encrypted key has no public projection")
	}
}

// EncodedLen returns the exact number of bytes Encode will write.
func (k KeypairData) EncodedLen() (int, error) {
	if k.tag == keypairEncrypted {
		return len(k.encrypted), nil
	}
	alg, err := k.Algorithm()
	if err != nil {
		return 0, err
	}
	bodyLen, err := k.bodyEncodedLen()
	if err != nil {
		return 0, err
	}
	return 8 + alg.EncodedLen() + bodyLen, nil
}

func (k KeypairData) bodyEncodedLen() (int, error) {
	switch k.tag {
	case keypairEd25519:
		return k.ed25519.encodedLen(), nil
	case keypairRsa:
		return k.rsa.encodedLen(), nil
	case keypairDsa:
		return k.dsa.encodedLen(), nil
	case keypairEcdsa:
		return k.ecdsa.encodedLen(), nil
	default:
		return 0, errorf(KindEncrypted, "encrypted key data has no per-algorithm body")
	}
}

func (k KeypairData) encodeBody(e *wire.Encoder) error {
	switch k.tag {
	case keypairEd25519:
		return k.ed25519.encode(e)
	case keypairRsa:
		return k.rsa.encode(e)
	case keypairDsa:
		return k.dsa.encode(e)
	case keypairEcdsa:
		return k.ecdsa.encode(e)
	default:
		return errorf(KindEncrypted, "encrypted key data has no per-algorithm body")
	}
}

// encode writes checkint×2, algorithm, body for a plaintext arm, or the
// raw ciphertext for the Encrypted arm.
func (k KeypairData) encode(e *wire.Encoder) error {
	if k.tag == keypairEncrypted {
		e.Raw(k.encrypted)
		return nil
	}
	pub, err := k.publicProjection()
	if err != nil {
		return err
	}
	checkint, err := pub.Checkint()
	if err != nil {
		return err
	}
	e.Uint32(checkint)
	e.Uint32(checkint)

	alg, err := k.Algorithm()
	if err != nil {
		return err
	}
	if err := alg.encode(e); err != nil {
		return err
	}
	return k.encodeBody(e)
}

// decode reads checkint×2 (failing KindCrypto on mismatch, the canary for
// a wrong password), the algorithm tag, and dispatches to the matching
// per-algorithm body decoder.
func decodeKeypairData(d *wire.Decoder) (KeypairData, error) {
	checkint1, err := d.Uint32()
	if err != nil {
		return KeypairData{}, wrapWireErr(err)
	}
	checkint2, err := d.Uint32()
	if err != nil {
		return KeypairData{}, wrapWireErr(err)
	}
	if checkint1 != checkint2 {
		return KeypairData{}, errorf(KindCrypto, "checkint mismatch: wrong password or corrupt key")
	}

	alg, err := decodeAlgorithm(d)
	if err != nil {
		return KeypairData{}, err
	}

	switch {
	case alg == AlgorithmDsa:
		body, err := decodeDsaKeypair(d)
		if err != nil {
			return KeypairData{}, err
		}
		return KeypairFromDsa(body), nil
	case alg == AlgorithmRsa:
		body, err := decodeRsaKeypair(d)
		if err != nil {
			return KeypairData{}, err
		}
		return KeypairFromRsa(body), nil
	case alg == AlgorithmEd25519:
		body, err := decodeEd25519Keypair(d)
		if err != nil {
			return KeypairData{}, err
		}
		return KeypairFromEd25519(body), nil
	case alg.IsEcdsa():
		body, err := decodeEcdsaKeypair(d)
		if err != nil {
			return KeypairData{}, err
		}
		if body.Curve != Curve(alg.Curve()) {
			return KeypairData{}, errorf(KindAlgorithm, "ecdsa curve tag %q disagrees with body curve %q", alg.Curve(), body.Curve)
		}
		return KeypairFromEcdsa(body), nil
	default:
		return KeypairData{}, errorf(KindAlgorithm, "unsupported algorithm %q", alg.Name())
	}
}

// encodedLenWithComment returns the length of body+comment, sans padding.
func (k KeypairData) encodedLenWithComment(comment string) (int, error) {
	n, err := k.EncodedLen()
	if err != nil {
		return 0, err
	}
	return n + wire.StringLen(comment), nil
}

// encodeWithComment writes the plaintext private-region layout: checkint
// pair, algorithm, body, comment, padding. It fails on the Encrypted arm,
// which carries no comment of its own.
func (k KeypairData) encodeWithComment(e *wire.Encoder, comment string, blockSize int) error {
	if k.tag == keypairEncrypted {
		return errorf(KindEncrypted, "cannot encode an encrypted key with a comment")
	}
	length, err := k.encodedLenWithComment(comment)
	if err != nil {
		return err
	}
	pad := paddingLen(length, blockSize)

	if err := k.encode(e); err != nil {
		return err
	}
	if err := e.EncodeString(comment); err != nil {
		return err
	}
	e.Raw(paddingBytes[:pad])
	return nil
}

// decodeWithComment parses the plaintext private-region layout, validates
// the decoded public key against publicKey.KeyData, fills in the comment,
// and validates the padding.
func decodeWithComment(d *wire.Decoder, publicKey *publickey.PublicKey, blockSize int) (KeypairData, error) {
	if blockSize <= 0 || blockSize > MaxBlockSize {
		return KeypairData{}, errorf(KindLength, "invalid block size %d", blockSize)
	}
	if d.RemainingLen()%blockSize != 0 {
		return KeypairData{}, errorf(KindLength, "private key region is not block-aligned")
	}

	keyData, err := decodeKeypairData(d)
	if err != nil {
		return KeypairData{}, err
	}

	pub, err := keyData.publicProjection()
	if err != nil {
		return KeypairData{}, err
	}
	if !pub.Equal(publicKey.KeyData) {
		return KeypairData{}, errorf(KindPublicKey, "derived public key does not match the key file's public key")
	}

	if err := publicKey.DecodeComment(d); err != nil {
		return KeypairData{}, wrapWireErr(err)
	}

	padLen := d.RemainingLen()
	if padLen >= blockSize {
		return KeypairData{}, errorf(KindLength, "padding length %d exceeds block size %d", padLen, blockSize)
	}
	if padLen != 0 {
		got, err := d.Raw(padLen)
		if err != nil {
			return KeypairData{}, wrapWireErr(err)
		}
		for i := 0; i < padLen; i++ {
			if got[i] != paddingBytes[i] {
				return KeypairData{}, errorf(KindFormatEncoding, "padding byte %d is %d, want %d", i, got[i], paddingBytes[i])
			}
		}
	}
	if !d.IsFinished() {
		return KeypairData{}, errorf(KindLength, "trailing bytes after padding")
	}

	return keyData, nil
}

// Equal reports whether k and other are the same keypair. The comparison
// of secret scalars is constant-time; the tag comparison and the
// Encrypted arm's ciphertext comparison are not secret-dependent branches
// in the same sense, but ciphertext bytes are still compared with
// subtle.ConstantTimeCompare per §5's "secret material" discipline.
func (k KeypairData) Equal(other KeypairData) bool {
	if k.tag != other.tag {
		return false
	}
	switch k.tag {
	case keypairEd25519:
		return k.ed25519.ctEq(other.ed25519)
	case keypairRsa:
		return k.rsa.ctEq(other.rsa)
	case keypairDsa:
		return k.dsa.ctEq(other.dsa)
	case keypairEcdsa:
		return k.ecdsa.ctEq(other.ecdsa)
	case keypairEncrypted:
		if len(k.encrypted) != len(other.encrypted) {
			return false
		}
		return subtle.ConstantTimeCompare(k.encrypted, other.encrypted) == 1
	default:
		return false
	}
}

// Zero overwrites every secret byte this KeypairData holds. Callers that
// are done with a plaintext KeypairData (e.g. after a failed decrypt, or
// once a derived value has been extracted) should call this before
// letting the value go out of scope.
func (k *KeypairData) Zero() {
	switch k.tag {
	case keypairEd25519:
		for i := range k.ed25519.PrivateKey {
			k.ed25519.PrivateKey[i] = 0
		}
	case keypairRsa:
		zeroBigInt(k.rsa.D)
		zeroBigInt(k.rsa.Iqmp)
		zeroBigInt(k.rsa.P)
		zeroBigInt(k.rsa.Q)
	case keypairDsa:
		zeroBigInt(k.dsa.X)
	case keypairEcdsa:
		zeroBigInt(k.ecdsa.D)
	case keypairEncrypted:
		for i := range k.encrypted {
			k.encrypted[i] = 0
		}
	}
}

// zeroBigInt clears a secret scalar in place. big.Int keeps no exported
// way to scrub its backing array, so this sets the value to 0, which at
// least drops our only reference to the original words.
func zeroBigInt(n *big.Int) {
	if n != nil {
		n.SetInt64(0)
	}
}

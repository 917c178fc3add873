// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"bytes"
	"crypto/subtle"
	"io"

	"github.com/cloudpines/osshkey/internal/cipher"
	"github.com/cloudpines/osshkey/internal/kdf"
	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

// magic is the fixed 15-byte preamble (including the trailing NUL) that
// opens every OpenSSH v1 private key container.
const magic = "openssh-key-v1\x00"

// PemLabel is the PEM block type every OpenSSH v1 private key is armored
// under.
const PemLabel = "OPENSSH PRIVATE KEY"

// nkeys is always 1: this package rejects the multi-key container layout
// the format nominally allows for.
const nkeys = 1

// PrivateKey is a parsed OpenSSH v1 private key container: the cipher and
// KDF it is (or isn't) encrypted under, its public key and comment, and
// either its decrypted keypair or opaque ciphertext.
type PrivateKey struct {
	cipher    cipher.Cipher
	kdf       kdf.Kdf
	publicKey publickey.PublicKey
	keyData   KeypairData
}

// New builds an unencrypted PrivateKey from keyData and comment. keyData
// must not be the Encrypted arm.
func New(keyData KeypairData, comment string) (*PrivateKey, error) {
	if keyData.IsEncrypted() {
		return nil, errorf(KindEncrypted, "cannot build a PrivateKey directly from ciphertext")
	}
	pub, err := keyData.publicProjection()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{
		cipher:    cipher.None,
		kdf:       kdf.None,
		publicKey: publickey.PublicKey{KeyData: pub, Comment: comment},
		keyData:   keyData,
	}, nil
}

// Algorithm returns the signature algorithm of the key. Unlike
// KeypairData.Algorithm, this works whether or not the key is currently
// encrypted, since the public key (and thus its algorithm) is always
// stored in the clear.
func (p *PrivateKey) Algorithm() Algorithm {
	switch {
	case p.publicKey.KeyData.IsEd25519():
		return AlgorithmEd25519
	case p.publicKey.KeyData.IsRsa():
		return AlgorithmRsa
	case p.publicKey.KeyData.IsDsa():
		return AlgorithmDsa
	default:
		ec, _ := p.publicKey.KeyData.Ecdsa()
		return AlgorithmEcdsa(Curve(ec.Curve))
	}
}

// Comment returns the key's comment.
func (p *PrivateKey) Comment() string { return p.publicKey.Comment }

// IsEncrypted reports whether the key is still encrypted.
func (p *PrivateKey) IsEncrypted() bool { return p.keyData.IsEncrypted() }

// Cipher returns the cipher the key is encrypted under, or cipher.None.
func (p *PrivateKey) Cipher() cipher.Cipher { return p.cipher }

// Kdf returns the KDF the key is encrypted under.
func (p *PrivateKey) Kdf() kdf.Kdf { return p.kdf }

// PublicKeyData returns the public components of the key.
func (p *PrivateKey) PublicKeyData() publickey.KeyData { return p.publicKey.KeyData }

// KeyData returns the decrypted keypair, or a KindEncrypted error if the
// key is still encrypted.
func (p *PrivateKey) KeyData() (KeypairData, error) {
	if p.keyData.IsEncrypted() {
		return KeypairData{}, errorf(KindEncrypted, "call Decrypt first")
	}
	return p.keyData, nil
}

// Fingerprint returns the SSH-style fingerprint of the key's public half.
func (p *PrivateKey) Fingerprint(alg publickey.HashAlg) (string, error) {
	return p.publicKey.KeyData.Fingerprint(alg)
}

// Equal reports whether p and other hold the same key material. Secret
// fields are compared in constant time; if either key is encrypted, their
// raw ciphertexts are compared instead of attempting to decrypt.
func (p *PrivateKey) Equal(other *PrivateKey) bool {
	if p.cipher != other.cipher || p.kdf.Name() != other.kdf.Name() {
		return false
	}
	if !p.publicKey.KeyData.Equal(other.publicKey.KeyData) {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(p.publicKey.Comment), []byte(other.publicKey.Comment)) != 1 {
		return false
	}
	return p.keyData.Equal(other.keyData)
}

// ParsePrivateKey parses a PEM-armored OpenSSH v1 private key container.
// The returned key is encrypted if, and only if, the file was.
func ParsePrivateKey(pemBytes []byte) (*PrivateKey, error) {
	label, body, rest, err := decodePemBlock(pemBytes)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(rest)) != 0 {
		return nil, errorf(KindPemLabel, "trailing data after the PEM block")
	}
	if label != PemLabel {
		return nil, errorf(KindPemLabel, "unexpected PEM block type %q, want %q", label, PemLabel)
	}
	return decodeContainer(body)
}

func decodeContainer(buf []byte) (*PrivateKey, error) {
	if len(buf) < len(magic) || string(buf[:len(magic)]) != magic {
		return nil, errorf(KindFormatEncoding, "bad magic bytes")
	}
	d := wire.NewDecoder(buf[len(magic):])

	cipherName, err := d.String()
	if err != nil {
		return nil, wrapWireErr(err)
	}
	c, ok := cipher.Parse(cipherName)
	if !ok {
		return nil, errorf(KindFormatEncoding, "unknown cipher %q", cipherName)
	}

	kdfValue, err := kdf.Decode(d)
	if err != nil {
		return nil, wrapKdfErr(err)
	}
	if (c == cipher.None) != kdfValue.IsNone() {
		return nil, errorf(KindFormatEncoding, "cipher/kdf mismatch: exactly one of them is none")
	}

	n, err := d.Usize()
	if err != nil {
		return nil, wrapWireErr(err)
	}
	if n != nkeys {
		return nil, errorf(KindLength, "unsupported key count %d, only single-key files are supported", n)
	}

	pubKeyData, err := wire.LengthPrefixed(d, publickey.Decode)
	if err != nil {
		return nil, wrapPublicKeyErr(err)
	}

	privBytes, err := d.Bytes()
	if err != nil {
		return nil, wrapWireErr(err)
	}
	if !d.IsFinished() {
		return nil, errorf(KindLength, "trailing bytes after the private key region")
	}

	p := &PrivateKey{
		cipher:    c,
		kdf:       kdfValue,
		publicKey: publickey.PublicKey{KeyData: pubKeyData},
	}

	if c == cipher.None {
		keyData, err := decodeWithComment(wire.NewDecoder(privBytes), &p.publicKey, DefaultBlockSize)
		if err != nil {
			return nil, err
		}
		p.keyData = keyData
		return p, nil
	}

	p.keyData = KeypairEncrypted(privBytes)
	return p, nil
}

// EncodeOpenSSH renders p as a PEM-armored OpenSSH v1 private key
// container, base64-wrapped at the same 70-column width ssh-keygen uses.
func (p *PrivateKey) EncodeOpenSSH() ([]byte, error) {
	body, err := p.encodeContainer()
	if err != nil {
		return nil, err
	}
	return encodePemBlock(PemLabel, body), nil
}

func (p *PrivateKey) encodeContainer() ([]byte, error) {
	e := wire.NewEncoder(256)
	e.Raw([]byte(magic))
	if err := e.EncodeString(p.cipher.String()); err != nil {
		return nil, err
	}
	if err := p.kdf.Encode(e); err != nil {
		return nil, err
	}
	if err := e.Usize(nkeys); err != nil {
		return nil, err
	}

	pubEnc := wire.NewEncoder(p.publicKey.KeyData.EncodedLen())
	if err := p.publicKey.KeyData.Encode(pubEnc); err != nil {
		return nil, err
	}
	if err := e.EncodeBytes(pubEnc.Bytes()); err != nil {
		return nil, err
	}

	if p.keyData.IsEncrypted() {
		ciphertext, _ := p.keyData.Encrypted()
		if err := e.EncodeBytes(ciphertext); err != nil {
			return nil, err
		}
		return e.Bytes(), nil
	}

	blockSize := DefaultBlockSize
	if p.cipher != cipher.None {
		blockSize = p.cipher.BlockSize()
	}
	length, err := p.keyData.encodedLenWithComment(p.publicKey.Comment)
	if err != nil {
		return nil, err
	}
	length += paddingLen(length, blockSize)
	privEnc := wire.NewEncoder(length)
	if err := p.keyData.encodeWithComment(privEnc, p.publicKey.Comment, blockSize); err != nil {
		return nil, err
	}
	if err := e.EncodeBytes(privEnc.Bytes()); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Encrypt returns a copy of p encrypted under password, using a fresh
// random salt read from rng and the given cipher, or cipher.Default
// (aes256-ctr) when c is cipher.None. The receiver must be a plaintext key.
func (p *PrivateKey) Encrypt(rng io.Reader, password []byte, c cipher.Cipher) (*PrivateKey, error) {
	if p.keyData.IsEncrypted() {
		return nil, errorf(KindEncrypted, "key is already encrypted")
	}
	if c == cipher.None {
		c = cipher.Default
	}

	kdfValue, err := kdf.NewBcrypt(rng)
	if err != nil {
		return nil, err
	}
	key, iv, err := kdfValue.DeriveKeyAndIV(c, password)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)
	defer zeroBytes(iv)

	blockSize := c.BlockSize()
	length, err := p.keyData.encodedLenWithComment(p.publicKey.Comment)
	if err != nil {
		return nil, err
	}
	length += paddingLen(length, blockSize)
	// plainEnc is allocated with room for the AEAD tag so that Encrypt's
	// in-place Seal(buf[:0], ..., buf, nil) pattern can grow the slice
	// within its existing backing array instead of reallocating.
	plainEnc := wire.NewEncoder(length + c.Overhead())
	if err := p.keyData.encodeWithComment(plainEnc, p.publicKey.Comment, blockSize); err != nil {
		return nil, err
	}

	ciphertext, err := c.Encrypt(key, iv, plainEnc.Bytes())
	if err != nil {
		return nil, err
	}

	return &PrivateKey{
		cipher:    c,
		kdf:       kdfValue,
		publicKey: publickey.PublicKey{KeyData: p.publicKey.KeyData, Comment: p.publicKey.Comment},
		keyData:   KeypairEncrypted(ciphertext),
	}, nil
}

// Decrypt returns a copy of p decrypted with password. The receiver must
// be an encrypted key. A wrong password is reported as a KindCrypto
// error, either from the cipher's own authentication (AEAD ciphers) or
// from the duplicated checkint canary (stream ciphers).
func (p *PrivateKey) Decrypt(password []byte) (*PrivateKey, error) {
	if !p.keyData.IsEncrypted() {
		return nil, errorf(KindDecrypted, "key is not encrypted")
	}
	ciphertext, _ := p.keyData.Encrypted()

	key, iv, err := p.kdf.DeriveKeyAndIV(p.cipher, password)
	if err != nil {
		return nil, wrapKdfErr(err)
	}
	defer zeroBytes(key)
	defer zeroBytes(iv)

	// buf holds the decrypted plaintext private-key region, which is
	// secret: scrub it on every exit path, success or failure. For AEAD
	// ciphers plaintext aliases buf's backing array (Open writes into
	// buf[:0]), so zeroing buf also scrubs plaintext.
	buf := append([]byte(nil), ciphertext...)
	defer zeroBytes(buf)
	plaintext, err := p.cipher.Decrypt(key, iv, buf)
	if err != nil {
		return nil, errorf(KindCrypto, "decryption failed, likely a wrong password: %v", err)
	}

	out := &PrivateKey{
		cipher:    cipher.None,
		kdf:       kdf.None,
		publicKey: publickey.PublicKey{KeyData: p.publicKey.KeyData},
	}
	blockSize := p.cipher.BlockSize()
	keyData, err := decodeWithComment(wire.NewDecoder(plaintext), &out.publicKey, blockSize)
	if err != nil {
		return nil, err
	}
	out.keyData = keyData
	return out, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

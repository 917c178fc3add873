// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package cipher implements the symmetric ciphers used to encrypt the
// private portion of an OpenSSH v1 key container: the stdlib AES-CTR and
// AES-GCM constructions, and chacha20-poly1305 as exposed by
// golang.org/x/crypto, matching the Go ecosystem's usual split between
// "stdlib covers AES" and "x/crypto covers everything NaCl/chacha".
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// A Cipher identifies one of the symmetric ciphers an OpenSSH private key
// container may be encrypted with. The zero value, None, represents an
// unencrypted key.
type Cipher int

const (
	None Cipher = iota
	AES128CTR
	AES192CTR
	AES256CTR
	AES128GCM
	AES192GCM
	AES256GCM
	ChaCha20Poly1305
)

// Default is the cipher used by Encrypt when none is specified: aes256-ctr.
const Default = AES256CTR

var names = map[Cipher]string{
	None:             "none",
	AES128CTR:        "aes128-ctr",
	AES192CTR:        "aes192-ctr",
	AES256CTR:        "aes256-ctr",
	AES128GCM:        "aes128-gcm@openssh.com",
	AES192GCM:        "aes192-gcm@openssh.com",
	AES256GCM:        "aes256-gcm@openssh.com",
	ChaCha20Poly1305: "chacha20-poly1305@openssh.com",
}

var byName = func() map[string]Cipher {
	m := make(map[string]Cipher, len(names))
	for c, n := range names {
		m[n] = c
	}
	return m
}()

// Parse maps an SSH ciphername string onto a Cipher, or reports ok=false
// for an unrecognized name.
func Parse(name string) (c Cipher, ok bool) {
	c, ok = byName[name]
	return
}

// String returns the SSH wire name of the cipher.
func (c Cipher) String() string { return names[c] }

// IsAEAD reports whether the cipher authenticates the ciphertext itself,
// as opposed to relying solely on the checkint canary.
func (c Cipher) IsAEAD() bool {
	switch c {
	case AES128GCM, AES192GCM, AES256GCM, ChaCha20Poly1305:
		return true
	default:
		return false
	}
}

// KeySize returns the cipher's symmetric key length in bytes.
func (c Cipher) KeySize() int {
	switch c {
	case None:
		return 0
	case AES128CTR, AES128GCM:
		return 16
	case AES192CTR, AES192GCM:
		return 24
	case AES256CTR, AES256GCM:
		return 32
	case ChaCha20Poly1305:
		return chacha20poly1305.KeySize
	default:
		return 0
	}
}

// IVSize returns the length of the IV or nonce the cipher consumes.
func (c Cipher) IVSize() int {
	switch c {
	case None:
		return 0
	case AES128CTR, AES192CTR, AES256CTR:
		return aes.BlockSize
	case AES128GCM, AES192GCM, AES256GCM:
		return 12
	case ChaCha20Poly1305:
		return chacha20poly1305.NonceSize
	default:
		return 0
	}
}

// BlockSize returns the block size used to pad the plaintext private-key
// region before encryption. For unencrypted keys callers use the
// container's nominal default of 8 instead of calling this on None.
func (c Cipher) BlockSize() int {
	switch c {
	case None, ChaCha20Poly1305:
		return 8
	case AES128CTR, AES192CTR, AES256CTR, AES128GCM, AES192GCM, AES256GCM:
		return aes.BlockSize
	default:
		return 8
	}
}

// Overhead returns the number of authentication-tag bytes an AEAD cipher
// appends to the ciphertext; zero for non-AEAD ciphers.
func (c Cipher) Overhead() int {
	if !c.IsAEAD() {
		return 0
	}
	a, err := c.aead(make([]byte, c.KeySize()))
	if err != nil {
		return 0
	}
	return a.Overhead()
}

func (c Cipher) aead(key []byte) (cipher.AEAD, error) {
	switch c {
	case AES128GCM, AES192GCM, AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCMWithNonceSize(block, 12)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, errors.New("cipher: not an AEAD cipher")
	}
}

// Encrypt encrypts buf in place using key and iv. For AEAD ciphers the
// authentication tag is appended after the plaintext: Encrypt returns the
// full sealed slice, which reuses buf's backing array when its capacity
// has room for the tag and is a fresh array reallocated by append otherwise.
func (c Cipher) Encrypt(key, iv []byte, buf []byte) ([]byte, error) {
	if err := c.checkSizes(key, iv); err != nil {
		return nil, err
	}
	switch {
	case c == None:
		return buf, nil
	case c.IsAEAD():
		a, err := c.aead(key)
		if err != nil {
			return nil, err
		}
		return a.Seal(buf[:0], iv, buf, nil), nil
	default:
		stream, err := c.stream(key, iv)
		if err != nil {
			return nil, err
		}
		stream.XORKeyStream(buf, buf)
		return buf, nil
	}
}

// Decrypt decrypts buf in place (or, for AEAD ciphers, into a new slice
// stripped of the authentication tag) using key and iv.
func (c Cipher) Decrypt(key, iv []byte, buf []byte) ([]byte, error) {
	if err := c.checkSizes(key, iv); err != nil {
		return nil, err
	}
	switch {
	case c == None:
		return buf, nil
	case c.IsAEAD():
		a, err := c.aead(key)
		if err != nil {
			return nil, err
		}
		return a.Open(buf[:0], iv, buf, nil)
	default:
		stream, err := c.stream(key, iv)
		if err != nil {
			return nil, err
		}
		stream.XORKeyStream(buf, buf)
		return buf, nil
	}
}

func (c Cipher) stream(key, iv []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewCTR(block, iv), nil
}

func (c Cipher) checkSizes(key, iv []byte) error {
	if c == None {
		return nil
	}
	if len(key) != c.KeySize() {
		return errors.New("cipher: wrong key size")
	}
	if len(iv) != c.IVSize() {
		return errors.New("cipher: wrong iv size")
	}
	return nil
}

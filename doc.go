// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

// Package osshkey parses, builds, and encrypts OpenSSH "openssh-key-v1"
// private key containers: the PEM-armored format `ssh-keygen` writes by
// default, covering ssh-ed25519, ssh-rsa, ssh-dss, and ecdsa-sha2-nistp*
// keys, with or without a bcrypt-pbkdf password.
//
//	key, err := osshkey.ParsePrivateKey(pemBytes)
//	if err != nil {
//		// handle error
//	}
//	if key.IsEncrypted() {
//		key, err = key.Decrypt(password)
//	}
//
// The publickey subpackage implements the public-key half of the format
// on its own, for callers that only need to parse or compare public
// components without touching private key material.
package osshkey

package osshkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/cloudpines/osshkey/internal/wire"
)

func TestRsaKeypairRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	k, err := NewRsaKeypair(priv)
	if err != nil {
		t.Fatal(err)
	}

	e := wire.NewEncoder(k.encodedLen())
	if err := k.encode(e); err != nil {
		t.Fatal(err)
	}
	if e.Len() != k.encodedLen() {
		t.Fatalf("encodedLen() = %d, encoded %d bytes", k.encodedLen(), e.Len())
	}

	got, err := decodeRsaKeypair(wire.NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if !k.ctEq(got) {
		t.Fatal("decoded keypair does not match original")
	}

	gotPriv, err := got.CryptoPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("rsa round trip"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, gotPriv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	if err := rsa.VerifyPKCS1v15(&priv.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		t.Fatalf("signature from decoded key did not verify: %v", err)
	}
}

func TestRsaKeypairMultiPrimeRejected(t *testing.T) {
	// rsa.GenerateMultiPrimeKey with nprimes > 2 should be rejected by
	// NewRsaKeypair, which only supports the standard two-prime layout.
	priv, err := rsa.GenerateMultiPrimeKey(rand.Reader, 3, 1024)
	if err != nil {
		t.Skipf("could not generate a multi-prime key: %v", err)
	}
	if _, err := NewRsaKeypair(priv); err == nil {
		t.Fatal("expected an error for a multi-prime rsa key")
	}
}

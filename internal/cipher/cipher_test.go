package cipher_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/cloudpines/osshkey/internal/cipher"
)

func TestParseRoundTrip(t *testing.T) {
	ciphers := []cipher.Cipher{
		cipher.None, cipher.AES128CTR, cipher.AES192CTR, cipher.AES256CTR,
		cipher.AES128GCM, cipher.AES192GCM, cipher.AES256GCM, cipher.ChaCha20Poly1305,
	}
	for _, c := range ciphers {
		got, ok := cipher.Parse(c.String())
		if !ok || got != c {
			t.Fatalf("Parse(%q) = %v, %v; want %v, true", c.String(), got, ok, c)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, ok := cipher.Parse("des-ede3-cbc"); ok {
		t.Fatal("expected ok=false for an unsupported cipher name")
	}
}

func TestStreamCipherRoundTrip(t *testing.T) {
	for _, c := range []cipher.Cipher{cipher.AES128CTR, cipher.AES192CTR, cipher.AES256CTR} {
		key := make([]byte, c.KeySize())
		iv := make([]byte, c.IVSize())
		rand.Read(key)
		rand.Read(iv)

		plaintext := []byte("the quick brown fox jumps over the lazy dog!!!")
		buf := append([]byte(nil), plaintext...)

		ct, err := c.Encrypt(key, iv, buf)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(ct, plaintext) {
			t.Fatal("ciphertext equals plaintext")
		}

		pt, err := c.Decrypt(key, iv, append([]byte(nil), ct...))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("got %q, want %q", pt, plaintext)
		}
	}
}

func TestAEADCipherRoundTrip(t *testing.T) {
	for _, c := range []cipher.Cipher{cipher.AES128GCM, cipher.AES256GCM, cipher.ChaCha20Poly1305} {
		key := make([]byte, c.KeySize())
		iv := make([]byte, c.IVSize())
		rand.Read(key)
		rand.Read(iv)

		plaintext := []byte("the quick brown fox jumps over the lazy dog!!!")
		ct, err := c.Encrypt(key, iv, append([]byte(nil), plaintext...))
		if err != nil {
			t.Fatal(err)
		}
		if len(ct) != len(plaintext)+c.Overhead() {
			t.Fatalf("got %d ciphertext bytes, want %d", len(ct), len(plaintext)+c.Overhead())
		}

		pt, err := c.Decrypt(key, iv, append([]byte(nil), ct...))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("got %q, want %q", pt, plaintext)
		}
	}
}

func TestAEADTamperDetected(t *testing.T) {
	c := cipher.AES256GCM
	key := make([]byte, c.KeySize())
	iv := make([]byte, c.IVSize())
	rand.Read(key)
	rand.Read(iv)

	ct, err := c.Encrypt(key, iv, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	ct[0] ^= 0xff

	if _, err := c.Decrypt(key, iv, ct); err == nil {
		t.Fatal("expected an authentication failure")
	}
}

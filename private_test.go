package osshkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/cloudpines/osshkey/internal/cipher"
	"github.com/cloudpines/osshkey/internal/kdf"
	"github.com/cloudpines/osshkey/internal/wire"
	"github.com/cloudpines/osshkey/publickey"
)

func generateTestPrivateKey(t *testing.T, comment string) *PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := New(KeypairFromEd25519(NewEd25519Keypair(priv)), comment)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestPrivateKeyPlaintextRoundTrip(t *testing.T) {
	key := generateTestPrivateKey(t, "test@example.com")

	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParsePrivateKey(pemBytes)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsEncrypted() {
		t.Fatal("parsed plaintext key as encrypted")
	}
	if !key.Equal(got) {
		t.Fatal("round-tripped key does not match original")
	}
	if got.Comment() != "test@example.com" {
		t.Fatalf("got comment %q", got.Comment())
	}
}

func TestPrivateKeyEncryptDecryptRoundTrip(t *testing.T) {
	key := generateTestPrivateKey(t, "encrypted@example.com")
	password := []byte("correct horse battery staple")

	for _, c := range []cipher.Cipher{cipher.AES256CTR, cipher.AES256GCM, cipher.ChaCha20Poly1305} {
		encrypted, err := key.Encrypt(rand.Reader, password, c)
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if !encrypted.IsEncrypted() {
			t.Fatalf("%v: Encrypt did not produce an encrypted key", c)
		}

		pemBytes, err := encrypted.EncodeOpenSSH()
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		parsed, err := ParsePrivateKey(pemBytes)
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if !parsed.IsEncrypted() {
			t.Fatalf("%v: parsed key lost its encrypted state", c)
		}

		decrypted, err := parsed.Decrypt(password)
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if decrypted.IsEncrypted() {
			t.Fatalf("%v: decrypted key still reports encrypted", c)
		}
		if !key.Equal(decrypted) {
			t.Fatalf("%v: decrypted key does not match original", c)
		}
	}
}

func TestPrivateKeyWrongPassword(t *testing.T) {
	key := generateTestPrivateKey(t, "wrongpw@example.com")
	encrypted, err := key.Encrypt(rand.Reader, []byte("the right password"), cipher.AES256GCM)
	if err != nil {
		t.Fatal(err)
	}

	_, err = encrypted.Decrypt([]byte("definitely the wrong password"))
	if !errors.Is(err, ErrCrypto) {
		t.Fatalf("got %v, want ErrCrypto", err)
	}
}

func TestPrivateKeyDecryptRejectsPlaintext(t *testing.T) {
	key := generateTestPrivateKey(t, "plain@example.com")
	if _, err := key.Decrypt([]byte("password")); !errors.Is(err, ErrDecrypted) {
		t.Fatalf("got %v, want ErrDecrypted", err)
	}
}

func TestPrivateKeyEncryptRejectsAlreadyEncrypted(t *testing.T) {
	key := generateTestPrivateKey(t, "double@example.com")
	encrypted, err := key.Encrypt(rand.Reader, []byte("password"), cipher.AES256CTR)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := encrypted.Encrypt(rand.Reader, []byte("password"), cipher.AES256CTR); !errors.Is(err, ErrEncrypted) {
		t.Fatalf("got %v, want ErrEncrypted", err)
	}
}

func TestParsePrivateKeyBadMagic(t *testing.T) {
	key := generateTestPrivateKey(t, "magic@example.com")
	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}

	tampered := tamperPemBody(t, pemBytes, func(body []byte) {
		body[0] ^= 0xff
	})
	if _, err := ParsePrivateKey(tampered); !errors.Is(err, ErrFormatEncoding) {
		t.Fatalf("got %v, want ErrFormatEncoding", err)
	}
}

func TestParsePrivateKeyRejectsWrongLabel(t *testing.T) {
	key := generateTestPrivateKey(t, "label@example.com")
	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(pemBytes, []byte(PemLabel), []byte("RSA PRIVATE KEY"), 1)
	if _, err := ParsePrivateKey(tampered); !errors.Is(err, ErrPemLabel) {
		t.Fatalf("got %v, want ErrPemLabel", err)
	}
}

func TestParsePrivateKeyEcdsaCurveMismatch(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	kp, err := NewEcdsaKeypair(priv)
	if err != nil {
		t.Fatal(err)
	}
	key, err := New(KeypairFromEcdsa(kp), "ecdsa@example.com")
	if err != nil {
		t.Fatal(err)
	}
	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}

	// The container encodes "nistp256" twice as a standalone length-8
	// string: once as the curve field of the public KeyData, and once as
	// the curve field of the EcdsaKeypair body. Tamper only the latter
	// (the last occurrence) so the outer algorithm tag still says P256
	// while the body claims P384.
	tampered := tamperPemBody(t, pemBytes, func(body []byte) {
		pattern := append([]byte{0, 0, 0, 8}, []byte(CurveP256)...)
		idx := bytes.LastIndex(body, pattern)
		if idx < 0 {
			t.Fatal("nistp256 curve field not found in encoded body")
		}
		copy(body[idx+4:idx+4+8], []byte(CurveP384))
	})
	if _, err := ParsePrivateKey(tampered); !errors.Is(err, ErrAlgorithm) {
		t.Fatalf("got %v, want ErrAlgorithm", err)
	}
}

func TestParsePrivateKeyPublicKeyMismatch(t *testing.T) {
	keyA := generateTestPrivateKey(t, "a@example.com")
	keyB := generateTestPrivateKey(t, "b@example.com")

	tampered := &PrivateKey{
		cipher: cipher.None,
		kdf:    kdf.None,
		publicKey: publickey.PublicKey{
			KeyData: keyB.publicKey.KeyData,
			Comment: keyA.publicKey.Comment,
		},
		keyData: keyA.keyData,
	}
	pemBytes, err := tampered.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParsePrivateKey(pemBytes); !errors.Is(err, ErrPublicKey) {
		t.Fatalf("got %v, want ErrPublicKey", err)
	}
}

func TestParsePrivateKeyPaddingTamper(t *testing.T) {
	key := generateTestPrivateKey(t, "pad@example.com")
	length, err := key.keyData.encodedLenWithComment(key.publicKey.Comment)
	if err != nil {
		t.Fatal(err)
	}
	if paddingLen(length, DefaultBlockSize) == 0 {
		t.Skip("no padding bytes to tamper with for this comment length")
	}

	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}
	tampered := tamperPemBody(t, pemBytes, func(body []byte) {
		body[len(body)-1] ^= 0xff
	})
	if _, err := ParsePrivateKey(tampered); !errors.Is(err, ErrFormatEncoding) {
		t.Fatalf("got %v, want ErrFormatEncoding", err)
	}
}

func TestParsePrivateKeyRejectsMultipleKeys(t *testing.T) {
	e := wire.NewEncoder(64)
	e.Raw([]byte(magic))
	if err := e.EncodeString("none"); err != nil {
		t.Fatal(err)
	}
	if err := kdf.None.Encode(e); err != nil {
		t.Fatal(err)
	}
	if err := e.Usize(2); err != nil {
		t.Fatal(err)
	}
	pemBytes := encodePemBlock(PemLabel, e.Bytes())

	if _, err := ParsePrivateKey(pemBytes); !errors.Is(err, ErrLength) {
		t.Fatalf("got %v, want ErrLength", err)
	}
}

func TestParsePrivateKeyTruncatedContainer(t *testing.T) {
	key := generateTestPrivateKey(t, "trunc@example.com")
	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}
	label, body, _, err := decodePemBlock(pemBytes)
	if err != nil {
		t.Fatal(err)
	}
	truncated := encodePemBlock(label, body[:len(body)-1])

	_, err = ParsePrivateKey(truncated)
	if !errors.Is(err, ErrLength) && !errors.Is(err, ErrFormatEncoding) {
		t.Fatalf("got %v, want ErrLength or ErrFormatEncoding", err)
	}
}

func TestParsePrivateKeyTrailingByte(t *testing.T) {
	key := generateTestPrivateKey(t, "trailing@example.com")
	pemBytes, err := key.EncodeOpenSSH()
	if err != nil {
		t.Fatal(err)
	}
	label, body, _, err := decodePemBlock(pemBytes)
	if err != nil {
		t.Fatal(err)
	}
	withExtra := encodePemBlock(label, append(append([]byte{}, body...), 0x00))

	if _, err := ParsePrivateKey(withExtra); !errors.Is(err, ErrLength) {
		t.Fatalf("got %v, want ErrLength", err)
	}
}

// tamperPemBody decodes the PEM block, lets f mutate the raw container
// bytes, and re-encodes it, so tests can corrupt specific byte offsets of
// the binary layout without hand-rolling base64.
func tamperPemBody(t *testing.T, pemBytes []byte, f func([]byte)) []byte {
	t.Helper()
	label, body, _, err := decodePemBlock(pemBytes)
	if err != nil {
		t.Fatalf("failed to decode PEM block: %v", err)
	}
	f(body)
	return encodePemBlock(label, body)
}

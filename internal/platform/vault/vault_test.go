package vault

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestNew_MissingKey(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestNew_WrongKeyLength(t *testing.T) {
	if _, err := New(make([]byte, 16)); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}

func TestRoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{0, 1, 1024, 10 * 1024 * 1024} {
		plaintext := make([]byte, size)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatal(err)
		}

		encrypted, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", size, err)
		}
		if size > 0 && bytes.Equal(encrypted, plaintext) {
			t.Fatalf("ciphertext equals plaintext at %d bytes", size)
		}

		decrypted, err := v.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", size, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip mismatch at %d bytes", size)
		}
	}
}

func TestDecrypt_WrongKeyFailsClosed(t *testing.T) {
	v1, _ := New(testKey(t))
	v2, _ := New(testKey(t))

	encrypted, err := v1.Encrypt([]byte("patient record"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v2.Decrypt(encrypted); err == nil {
		t.Fatal("expected authentication failure with wrong key")
	}
}

func TestDecrypt_Truncated(t *testing.T) {
	v, _ := New(testKey(t))
	if _, err := v.Decrypt([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	v, _ := New(testKey(t))
	encrypted, err := v.Encrypt([]byte("vaccination certificate"))
	if err != nil {
		t.Fatal(err)
	}
	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := v.Decrypt(encrypted); err == nil {
		t.Fatal("expected authentication failure for tampered ciphertext")
	}
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := hex.DecodeString(k1)
	if err != nil {
		t.Fatalf("generated key is not hex: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(raw))
	}

	k2, _ := GenerateKey()
	if k1 == k2 {
		t.Error("two generated keys are identical")
	}
}

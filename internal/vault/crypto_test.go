package vault

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}

	if len(salt1) != SaltSize {
		t.Errorf("Expected salt size %d, got %d", SaltSize, len(salt1))
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate second salt: %v", err)
	}

	if bytes.Equal(salt1, salt2) {
		t.Error("Generated salts should be different")
	}
}

func TestNewRandomKey(t *testing.T) {
	key1, err := NewRandomKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	if len(key1) != KeySize {
		t.Errorf("Expected key size %d, got %d", KeySize, len(key1))
	}

	key2, err := NewRandomKey()
	if err != nil {
		t.Fatalf("Failed to generate second key: %v", err)
	}
	if bytes.Equal(key1, key2) {
		t.Error("Random keys should be different")
	}
}

func TestDeriveKey(t *testing.T) {
	password := "test-passphrase-123"
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}

	key1 := DeriveKey(password, salt)
	if len(key1) != KeySize {
		t.Errorf("Expected key size %d, got %d", KeySize, len(key1))
	}

	// Same inputs should produce same key
	key2 := DeriveKey(password, salt)
	if !bytes.Equal(key1, key2) {
		t.Error("Same inputs should produce same key")
	}

	if key3 := DeriveKey("different-passphrase", salt); bytes.Equal(key1, key3) {
		t.Error("Different passphrase should produce different key")
	}

	salt2 := append([]byte(nil), salt...)
	salt2[0] ^= 0xff
	if key4 := DeriveKey(password, salt2); bytes.Equal(key1, key4) {
		t.Error("Different salt should produce different key")
	}
}

func TestDeriveKeyKnownVector(t *testing.T) {
	old := Iterations
	Iterations = 1
	defer func() { Iterations = old }()

	// PBKDF2-HMAC-SHA256("password", "salt", 1, 32)
	want := []byte{
		0x12, 0x0f, 0xb6, 0xcf, 0xfc, 0xf8, 0xb3, 0x2c,
		0x43, 0xe7, 0x22, 0x52, 0x56, 0xc4, 0xf8, 0x37,
		0xa8, 0x65, 0x48, 0xc9, 0x2c, 0xcc, 0x35, 0x48,
		0x08, 0x05, 0x98, 0x7c, 0xb7, 0x0b, 0xe1, 0x7b,
	}
	if got := DeriveKey("password", []byte("salt")); !bytes.Equal(got, want) {
		t.Errorf("Unexpected derived key: %x", []byte(got))
	}
}

func TestParseKey(t *testing.T) {
	key, err := NewRandomKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("Failed to parse key: %v", err)
	}
	if !bytes.Equal(parsed, key) {
		t.Error("Parsed key does not match original")
	}

	if _, err := ParseKey("not base64!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}

	short := base64.URLEncoding.EncodeToString([]byte("short"))
	if _, err := ParseKey(short); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Expected ErrInvalidKeySize, got %v", err)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := NewRandomKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	for _, plaintext := range []string{"JBSWY3DPEHPK3PXP", "", "ünïcödé seed", strings.Repeat("A", 4096)} {
		token, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatalf("Failed to encrypt: %v", err)
		}
		if plaintext != "" && strings.Contains(token, plaintext) {
			t.Error("Token should not contain the plaintext")
		}

		decrypted, err := Decrypt(key, token)
		if err != nil {
			t.Fatalf("Failed to decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("Decrypted text does not match original: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	key, _ := NewRandomKey()

	token1, err := Encrypt(key, "JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	token2, err := Encrypt(key, "JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if token1 == token2 {
		t.Error("Encrypting twice should give different tokens")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key1, _ := NewRandomKey()
	key2, _ := NewRandomKey()

	token, err := Encrypt(key1, "JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	plaintext, err := Decrypt(key2, token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
	if plaintext != "" {
		t.Error("No plaintext should be returned on failure")
	}
}

func TestTamperDetection(t *testing.T) {
	key, _ := NewRandomKey()

	token, err := Encrypt(key, "Data that should detect tampering")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	raw, _ := base64.URLEncoding.DecodeString(token)

	// Flip one bit in the timestamp, the IV, the ciphertext and the HMAC
	for _, idx := range []int{3, headerSize + 1, headerSize + ivSize + 1, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[idx] ^= 1
		if _, err := Decrypt(key, base64.URLEncoding.EncodeToString(tampered)); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Tampered byte %d should fail with ErrInvalidToken, got %v", idx, err)
		}
	}
}

func TestDecryptMalformed(t *testing.T) {
	key, _ := NewRandomKey()

	cases := map[string]string{
		"not base64":    "%%%",
		"too short":     base64.URLEncoding.EncodeToString([]byte{TokenVersion, 1, 2}),
		"wrong version": base64.URLEncoding.EncodeToString(make([]byte, minTokenSize)),
		"plain seed":    "JBSWY3DPEHPK3PXP",
	}
	for name, token := range cases {
		if _, err := Decrypt(key, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestDecryptFernetReferenceToken(t *testing.T) {
	// Reference vector from the Fernet spec, as written by other Fernet
	// implementations. Its age must not matter.
	key, err := ParseKey("cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=")
	if err != nil {
		t.Fatalf("Failed to parse key: %v", err)
	}
	token := "gAAAAAAdwJ6wAAECAwQFBgcICQoLDA0ODy021cpGVWKZ_eEwCGM4BLLF_5CV9dOPmrhuVUPgJobwOz7JcbmrR64jVmpU4IwqDA=="

	plaintext, err := Decrypt(key, token)
	if err != nil {
		t.Fatalf("Failed to decrypt reference token: %v", err)
	}
	if plaintext != "hello" {
		t.Errorf("Expected %q, got %q", "hello", plaintext)
	}

	ts, err := TokenTimestamp(token)
	if err != nil {
		t.Fatalf("Failed to read timestamp: %v", err)
	}
	if want := time.Date(1985, 10, 26, 8, 20, 0, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("Expected timestamp %v, got %v", want, ts)
	}
}

func TestEncryptEmptyString(t *testing.T) {
	key, _ := NewRandomKey()
	token, err := Encrypt(key, "")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	plaintext, err := Decrypt(key, token)
	if err != nil || plaintext != "" {
		t.Errorf("Expected empty plaintext, got %q, %v", plaintext, err)
	}
}

func TestInvalidKeySize(t *testing.T) {
	if _, err := Encrypt(Key("short"), "x"); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Expected ErrInvalidKeySize, got %v", err)
	}
	if _, err := Decrypt(Key("short"), "x"); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Expected ErrInvalidKeySize, got %v", err)
	}
}

func TestTokenTimestamp(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	key, _ := NewRandomKey()
	token, err := Encrypt(key, "seed")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	ts, err := TokenTimestamp(token)
	if err != nil {
		t.Fatalf("Failed to read timestamp: %v", err)
	}
	if !ts.Equal(fixed) {
		t.Errorf("Expected timestamp %v, got %v", fixed, ts)
	}
	if !IsToken(token) || IsToken("JBSWY3DPEHPK3PXP") {
		t.Error("IsToken misclassified input")
	}
}

func TestZeroize(t *testing.T) {
	key, _ := NewRandomKey()
	key.Zeroize()

	for i, b := range key {
		if b != 0 {
			t.Errorf("Byte at index %d not zeroed: %d", i, b)
		}
	}
}

func TestDescribeScheme(t *testing.T) {
	if info := DescribeScheme(1, nil); info.Cipher != "none" {
		t.Errorf("Expected no cipher for v1, got %s", info.Cipher)
	}
	info := DescribeScheme(3, make([]byte, SaltSize))
	if info.KDF != "PBKDF2-HMAC-SHA256" || info.SaltLength != SaltSize || info.Iterations != Iterations {
		t.Errorf("Unexpected v3 scheme: %+v", info)
	}
}

package vault

import (
	"testing"
)

// BenchmarkKeyDerivation benchmarks PBKDF2 key derivation at the default cost
func BenchmarkKeyDerivation(b *testing.B) {
	salt, _ := GenerateSalt()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		key := DeriveKey("benchmark-passphrase", salt)
		key.Zeroize()
	}
}

// BenchmarkEncrypt benchmarks sealing a typical base32 seed
func BenchmarkEncrypt(b *testing.B) {
	key, _ := NewRandomKey()
	defer key.Zeroize()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Encrypt(key, "JBSWY3DPEHPK3PXP"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecrypt benchmarks opening a typical base32 seed
func BenchmarkDecrypt(b *testing.B) {
	key, _ := NewRandomKey()
	defer key.Zeroize()
	token, err := Encrypt(key, "JBSWY3DPEHPK3PXP")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Decrypt(key, token); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSaltGeneration benchmarks salt generation
func BenchmarkSaltGeneration(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GenerateSalt()
	}
}

// BenchmarkZeroization benchmarks memory zeroization
func BenchmarkZeroization(b *testing.B) {
	data := make([]byte, KeySize)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		Zeroize(data)
	}
}

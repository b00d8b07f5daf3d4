// Package totp computes RFC 6238 time-based one-time passwords from base32
// seeds.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultPeriod = 30 * time.Second
	DefaultDigits = 6
)

// ErrInvalidSeed is returned when a seed is not usable base32.
var ErrInvalidSeed = errors.New("invalid TOTP seed")

// SeedError reports why a seed was rejected.
type SeedError struct {
	Err error
}

func (e *SeedError) Error() string {
	if e.Err == nil {
		return ErrInvalidSeed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidSeed, e.Err)
}

func (e *SeedError) Unwrap() error { return ErrInvalidSeed }

// Algorithm is the HMAC hash used for code generation.
type Algorithm string

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

func (a Algorithm) hash() (func() hash.Hash, error) {
	switch a {
	case SHA1, "":
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", string(a))
	}
}

type params struct {
	period    time.Duration
	digits    int
	algorithm Algorithm
}

// Option tunes code generation.
type Option func(*params)

// WithPeriod sets the time step. Values under one second are ignored.
func WithPeriod(period time.Duration) Option {
	return func(p *params) {
		if period >= time.Second {
			p.period = period
		}
	}
}

// WithDigits sets the code length (1 to 10).
func WithDigits(digits int) Option {
	return func(p *params) {
		if digits > 0 && digits <= 10 {
			p.digits = digits
		}
	}
}

// WithAlgorithm sets the HMAC hash.
func WithAlgorithm(a Algorithm) Option {
	return func(p *params) { p.algorithm = a }
}

func newParams(opts []Option) params {
	p := params{period: DefaultPeriod, digits: DefaultDigits, algorithm: SHA1}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// DecodeSeed normalizes and decodes a base32 seed. Case, spaces, hyphens and
// padding are tolerated, as authenticator apps print seeds in many shapes.
func DecodeSeed(seed string) ([]byte, error) {
	normalized := strings.ToUpper(seed)
	normalized = strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(normalized)
	normalized = strings.TrimRight(normalized, "=")
	if normalized == "" {
		return nil, &SeedError{Err: errors.New("empty seed")}
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, &SeedError{Err: err}
	}
	return key, nil
}

// ValidateSeed reports whether seed can be used to generate codes.
func ValidateSeed(seed string) error {
	_, err := DecodeSeed(seed)
	return err
}

// Generate returns the code for seed at the given instant.
func Generate(seed string, at time.Time, opts ...Option) (string, error) {
	p := newParams(opts)

	key, err := DecodeSeed(seed)
	if err != nil {
		return "", err
	}

	h, err := p.algorithm.hash()
	if err != nil {
		return "", err
	}

	return hotp(h, key, Counter(at, p.period), p.digits), nil
}

// Now returns the code for seed at the current time.
func Now(seed string, opts ...Option) (string, error) {
	return Generate(seed, time.Now(), opts...)
}

// Counter returns the time step index of t.
func Counter(t time.Time, period time.Duration) uint64 {
	return uint64(t.Unix()) / uint64(period/time.Second)
}

// Remaining returns how long the code valid at t stays valid.
func Remaining(t time.Time, period time.Duration) time.Duration {
	secs := int64(period / time.Second)
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs-t.Unix()%secs) * time.Second
}

// hotp implements RFC 4226 dynamic truncation.
func hotp(h func() hash.Hash, key []byte, counter uint64, digits int) string {
	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, counter)

	mac := hmac.New(h, key)
	mac.Write(msg)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, uint64(code)%mod)
}

// URI builds an otpauth:// key URI understood by authenticator apps.
func URI(label, issuer, seed string) string {
	v := url.Values{}
	v.Set("secret", strings.ToUpper(strings.ReplaceAll(seed, " ", "")))
	if issuer != "" {
		v.Set("issuer", issuer)
	}
	v.Set("algorithm", string(SHA1))
	v.Set("digits", fmt.Sprint(DefaultDigits))
	v.Set("period", fmt.Sprint(int(DefaultPeriod/time.Second)))

	name := label
	if issuer != "" {
		name = issuer + ":" + label
	}

	u := url.URL{Scheme: "otpauth", Host: "totp", Path: "/" + name, RawQuery: v.Encode()}
	return u.String()
}

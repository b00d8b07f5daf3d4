// Package export writes stored accounts in formats other authenticator apps
// can import.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
)

// FormatAndOTP is the only supported export format.
const FormatAndOTP = "andotp"

// DefaultIssuer is written when no issuer is configured.
const DefaultIssuer = "tetripin"

// DefaultQRSize is the side of generated QR images in pixels.
const DefaultQRSize = 256

// AndOTPEntry is one account in an andOTP JSON backup.
type AndOTPEntry struct {
	Secret        string   `json:"secret"`
	Label         string   `json:"label"`
	LastUsed      int64    `json:"last_used"`
	Tags          []string `json:"tags"`
	UsedFrequency int      `json:"used_frequency"`
	Digits        int      `json:"digits"`
	Period        int      `json:"period"`
	Algorithm     string   `json:"algorithm"`
	Thumbnail     string   `json:"thumbnail"`
	Type          string   `json:"type"`
	Issuer        string   `json:"issuer"`
}

// AndOTP builds andOTP entries for seeds in the order of labels. Every entry
// carries the same last_used stamp.
func AndOTP(labels []string, seeds map[string]string, issuer string, now time.Time) ([]AndOTPEntry, error) {
	if issuer == "" {
		issuer = DefaultIssuer
	}

	entries := make([]AndOTPEntry, 0, len(labels))
	for _, label := range labels {
		seed, ok := seeds[label]
		if !ok {
			return nil, &store.UnknownAccountError{Label: label}
		}
		entries = append(entries, AndOTPEntry{
			Secret:        seed,
			Label:         label,
			LastUsed:      now.UnixMilli(),
			Tags:          []string{},
			UsedFrequency: 0,
			Digits:        totp.DefaultDigits,
			Period:        int(totp.DefaultPeriod / time.Second),
			Algorithm:     string(totp.SHA1),
			Thumbnail:     "Default",
			Type:          "TOTP",
			Issuer:        issuer,
		})
	}
	return entries, nil
}

// MarshalAndOTP encodes entries as an indented JSON array.
func MarshalAndOTP(entries []AndOTPEntry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// WriteAndOTP writes the clear seeds of s to path as an andOTP backup. The
// file holds unencrypted seeds and is created with owner-only permissions.
func WriteAndOTP(path string, s *store.Store, seeds map[string]string, issuer string, now time.Time) (int, error) {
	entries, err := AndOTP(s.Labels(), seeds, issuer, now)
	if err != nil {
		return 0, err
	}
	data, err := MarshalAndOTP(entries)
	if err != nil {
		return 0, err
	}
	if err := store.AtomicWriteFile(filepath.Clean(path), data); err != nil {
		return 0, fmt.Errorf("failed to write export %s: %w", path, err)
	}
	return len(entries), nil
}

// QRCode returns a PNG QR code holding the otpauth URI of one account.
func QRCode(label, issuer, seed string, size int) ([]byte, error) {
	if err := totp.ValidateSeed(seed); err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(totp.URI(label, issuer, seed), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// WriteQRCode writes the QR code of one account to path.
func WriteQRCode(path, label, issuer, seed string, size int) error {
	png, err := QRCode(label, issuer, seed, size)
	if err != nil {
		return err
	}
	if err := store.AtomicWriteFile(filepath.Clean(path), png); err != nil {
		return fmt.Errorf("failed to write QR code %s: %w", path, err)
	}
	return nil
}

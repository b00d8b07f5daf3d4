package vault

// SchemeInfo describes how secrets of a store are protected.
type SchemeInfo struct {
	Cipher     string `json:"cipher"`
	KDF        string `json:"kdf,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	SaltLength int    `json:"salt_length,omitempty"`
	KeySource  string `json:"key_source"`
}

// DescribeScheme returns the protection scheme used by a store of the given
// format version.
func DescribeScheme(version int, salt []byte) SchemeInfo {
	switch version {
	case 1:
		return SchemeInfo{Cipher: "none", KeySource: "none"}
	case 2:
		return SchemeInfo{Cipher: "Fernet (AES-128-CBC + HMAC-SHA256)", KeySource: "key cache (random key)"}
	default:
		return SchemeInfo{
			Cipher:     "Fernet (AES-128-CBC + HMAC-SHA256)",
			KDF:        "PBKDF2-HMAC-SHA256",
			Iterations: Iterations,
			SaltLength: len(salt),
			KeySource:  "password",
		}
	}
}

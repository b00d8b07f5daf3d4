package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetricoins/tetripin/internal/vault"
)

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "example", NormalizeLabel("  Example "))
	assert.Equal(t, "", NormalizeLabel("   "))
}

func TestAddAndGetNormalizesLabel(t *testing.T) {
	s := New(V1Plaintext)
	require.NoError(t, s.Add("Example", "JBSWY3DPEHPK3PXP"))

	acc, ok := s.Get("example ")
	require.True(t, ok)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", acc.Secret)

	for _, variant := range []string{"Example", "EXAMPLE", " example\t"} {
		err := s.Add(variant, "OTHERSEED")
		var dup *DuplicateAccountError
		require.True(t, errors.As(err, &dup), "variant %q: %v", variant, err)
		assert.Equal(t, "example", dup.Label)
		assert.True(t, errors.Is(err, ErrDuplicateAccount))
	}
	assert.Equal(t, 1, s.Len())
}

func TestAddRejectsEmptyLabelAndSecret(t *testing.T) {
	s := New(V1Plaintext)

	assert.ErrorIs(t, s.Add("  ", "JBSWY3DPEHPK3PXP"), ErrEmptyLabel)
	assert.ErrorIs(t, s.Add("github", "   "), ErrMissingSecret)
	assert.Equal(t, 0, s.Len())
}

func TestRemove(t *testing.T) {
	s := New(V1Plaintext)
	require.NoError(t, s.Add("github", "AAAA"))
	require.NoError(t, s.Add("gitlab", "BBBB"))

	acc, err := s.Remove(" GitHub")
	require.NoError(t, err)
	assert.Equal(t, "AAAA", acc.Secret)
	assert.Equal(t, []string{"gitlab"}, s.Labels())

	_, err = s.Remove("github")
	var unknown *UnknownAccountError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "github", unknown.Label)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestLabelsKeepInsertionOrder(t *testing.T) {
	s := New(V1Plaintext)
	for _, label := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Add(label, "AAAA"))
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.Labels())
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.SortedLabels())
}

func TestResolveSecretsPlaintext(t *testing.T) {
	s := New(V1Plaintext)
	require.NoError(t, s.Add("GitHub", "JBSWY3DPEHPK3PXP"))

	secrets, err := s.ResolveSecrets(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"github": "JBSWY3DPEHPK3PXP"}, secrets)
}

func TestResolveSecretsEncrypted(t *testing.T) {
	key, err := vault.NewRandomKey()
	require.NoError(t, err)

	token, err := vault.Encrypt(key, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	s := New(V2KeyringKey)
	require.NoError(t, s.Add("github", token))

	secrets, err := s.ResolveSecrets(key)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"github": "JBSWY3DPEHPK3PXP"}, secrets)

	seed, err := s.Resolve("GITHUB", key)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", seed)

	_, err = s.ResolveSecrets(nil)
	assert.ErrorIs(t, err, ErrKeyRequired)

	other, _ := vault.NewRandomKey()
	_, err = s.ResolveSecrets(other)
	assert.ErrorIs(t, err, vault.ErrInvalidToken)

	_, err = s.Resolve("missing", key)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestResolveSecretsMissingSecret(t *testing.T) {
	s, err := Parse([]byte("format_version = 1\n[account.github]\nsecret = \"  \"\n"))
	require.NoError(t, err)

	_, err = s.ResolveSecrets(nil)
	var missing *MissingSecretError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "github", missing.Label)

	// The broken account can still be removed.
	_, err = s.Remove("github")
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, New(Version(4)).Validate(), ErrSchema)
	assert.ErrorIs(t, New(V3PasswordKey).Validate(), ErrSchema)

	s := New(V3PasswordKey)
	s.Salt = make([]byte, vault.SaltSize)
	assert.NoError(t, s.Validate())
	assert.NoError(t, New(V2KeyringKey).Validate())
}

func TestFilterLabels(t *testing.T) {
	labels := []string{"github", "gitlab", "google work", "aws prod"}

	assert.Equal(t, labels, FilterLabels(labels, "  "))
	assert.Equal(t, []string{"github", "gitlab"}, FilterLabels(labels, "GIT"))
	assert.Equal(t, []string{"google work"}, FilterLabels(labels, "goo+work"))
	assert.Empty(t, FilterLabels(labels, "nothing"))
}

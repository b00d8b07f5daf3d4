package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCreatesEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.toml")

	created, err := Ensure(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, V1Plaintext, s.Version)
	assert.Equal(t, 0, s.Len())

	created, err = Ensure(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileAccess)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var accessErr *FileAccessError
	require.True(t, errors.As(err, &accessErr))
	assert.Equal(t, path, accessErr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestLoadReportsPathInParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte("format_version = 1\n"), 0o600))

	_, err := Load(path)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, path, schemaErr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")

	s := New(V1Plaintext)
	require.NoError(t, s.Add("github", "JBSWY3DPEHPK3PXP"))
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	secrets, err := loaded.ResolveSecrets(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"github": "JBSWY3DPEHPK3PXP"}, secrets)

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	s := New(V1Plaintext)
	require.NoError(t, s.Add("github", "JBSWY3DPEHPK3PXP"))
	require.NoError(t, Save(path, s))

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	backupPath, err := Backup(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(backupPath, path+".bak-"))

	copied, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	second, err := Backup(path)
	require.NoError(t, err)
	assert.NotEqual(t, backupPath, second)

	_, err = Backup(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrFileAccess)
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	_, err := Ensure(path)
	require.NoError(t, err)

	err = Update(path, time.Second, func(s *Store) error {
		return s.Add("github", "JBSWY3DPEHPK3PXP")
	})
	require.NoError(t, err)

	// A failing callback leaves the file untouched
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	err = Update(path, time.Second, func(s *Store) error {
		return s.Add("GitHub", "OTHER")
	})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file should be released")
}

func TestUpdateSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	_, err := Ensure(path)
	require.NoError(t, err)

	labels := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	errs := make(chan error, len(labels))
	for _, label := range labels {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			errs <- Update(path, 5*time.Second, func(s *Store) error {
				return s.Add(label, "AAAA")
			})
		}(label)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := Load(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, labels, s.Labels())
}

func TestUpdateLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	_, err := Ensure(path)
	require.NoError(t, err)

	held := NewFileLock(path)
	require.NoError(t, held.Lock(time.Second))
	defer held.Unlock()

	err = Update(path, 100*time.Millisecond, func(*Store) error { return nil })
	assert.ErrorIs(t, err, ErrStoreLocked)
}

func TestFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "secrets.toml")

	lock1 := NewFileLock(lockPath)
	if err := lock1.Lock(1 * time.Second); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	if !lock1.IsLocked() {
		t.Error("Lock should be held")
	}

	// Test lock contention
	lock2 := NewFileLock(lockPath)
	if err := lock2.Lock(100 * time.Millisecond); err != ErrLockTimeout {
		t.Errorf("Expected timeout error, got %v", err)
	}
	if !lock2.IsLocked() {
		t.Error("Lock held by another FileLock should be reported")
	}

	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}

	if lock1.IsLocked() || lock2.IsLocked() {
		t.Error("Lock should be released")
	}

	if err := lock1.Unlock(); err != ErrLockNotHeld {
		t.Errorf("Expected ErrLockNotHeld, got %v", err)
	}

	// Now second lock should succeed
	if err := lock2.Lock(1 * time.Second); err != nil {
		t.Fatalf("Failed to acquire lock after release: %v", err)
	}

	lock2.Unlock()
}

func TestFileLockReclaimsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345"), 0o600))

	old := time.Now().Add(-2 * staleLockAge)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	lock := NewFileLock(path)
	assert.False(t, lock.IsLocked())
	require.NoError(t, lock.Lock(time.Second))
	require.NoError(t, lock.Unlock())
}

func TestAtomicWriter(t *testing.T) {
	tempDir := t.TempDir()
	targetPath := filepath.Join(tempDir, "test.txt")

	writer, err := NewAtomicWriter(targetPath)
	if err != nil {
		t.Fatalf("Failed to create atomic writer: %v", err)
	}

	testData := []byte("Hello, World!")
	if _, err := writer.Write(testData); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}

	if err := writer.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read target file: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("File content mismatch: got %s, want %s", string(data), string(testData))
	}

	// Test abort
	writer2, err := NewAtomicWriter(targetPath + ".2")
	if err != nil {
		t.Fatalf("Failed to create second atomic writer: %v", err)
	}

	writer2.Write([]byte("This should be aborted"))
	if err := writer2.Abort(); err != nil {
		t.Fatalf("Failed to abort: %v", err)
	}

	if _, err := os.Stat(targetPath + ".2"); !os.IsNotExist(err) {
		t.Error("Aborted file should not exist")
	}
}

func TestEnsureFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loose")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	require.NoError(t, EnsureFilePermissions(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/migrate"
	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
)

// doctorReport collects the outcome of each check.
type doctorReport struct {
	out      io.Writer
	issues   int
	warnings int
	first    error
}

func (r *doctorReport) section(title string) {
	fmt.Fprintf(r.out, "\n%s\n", title)
}

func (r *doctorReport) ok(format string, args ...interface{}) {
	fmt.Fprintf(r.out, "   ✅ "+format+"\n", args...)
}

func (r *doctorReport) warn(format string, args ...interface{}) {
	fmt.Fprintf(r.out, "   ⚠️  "+format+"\n", args...)
	r.warnings++
}

func (r *doctorReport) fail(err error, format string, args ...interface{}) {
	fmt.Fprintf(r.out, "   ❌ "+format+"\n", args...)
	r.issues++
	if r.first == nil {
		r.first = err
	}
}

func newDoctorCommand(a *App) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Perform security and health checks",
		Long: `Perform health checks on the secrets file.

This command checks:
- File permissions
- TOML syntax and schema
- Key availability
- That every secret decrypts to a valid base32 seed

Example:
  tetripin doctor
  tetripin doctor --fix`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd, fix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Restrict secrets file permissions to 0600")
	return cmd
}

func (a *App) runDoctor(cmd *cobra.Command, fix bool) error {
	r := &doctorReport{out: cmd.OutOrStdout()}
	path := a.engine.Path

	fmt.Fprintln(r.out, "Tetripin Health Check")
	fmt.Fprintln(r.out, "=====================")

	r.section("1. Secrets File Security")
	a.checkPermissions(r, path, fix)
	if lock := store.NewFileLock(path); lock.IsLocked() {
		r.warn("Secrets file is locked by another tetripin process (%s)", lock.Path())
	}

	r.section("2. Secrets File Structure")
	s, err := a.engine.Load()
	if err != nil {
		r.fail(err, "%v", err)
		return a.doctorSummary(r)
	}
	r.ok("Format: %s, %d account(s)", s.Version, s.Len())

	r.section("3. Key")
	key, err := a.engine.Key(cmd.Context(), s)
	switch {
	case !s.Version.Encrypted():
		r.warn("Seeds are stored in clear text, run 'tetripin migrate' to encrypt them")
	case errors.Is(err, migrate.ErrLocked):
		r.warn("Secrets are locked, cannot check them")
		fmt.Fprintln(r.out, "      Run 'tetripin unlock' first for a complete check")
		return a.doctorSummary(r)
	case err != nil:
		r.fail(err, "Cannot read the key cache: %v", err)
		return a.doctorSummary(r)
	default:
		r.ok("Key available from the %s backend", a.cfg.KeyBackend)
	}
	defer key.Zeroize()

	r.section("4. Secrets")
	bad := 0
	for _, label := range s.SortedLabels() {
		seed, err := s.Resolve(label, key)
		if err == nil {
			err = totp.ValidateSeed(seed)
		}
		if err != nil {
			r.fail(err, "%s: %v", label, err)
			bad++
		}
	}
	if bad == 0 {
		r.ok("All %d secret(s) decrypt to valid TOTP seeds", s.Len())
	}

	r.section("5. Settings")
	if a.cfg.ClipboardTTL > 60*time.Second {
		r.warn("Clipboard timeout is %v (consider reducing it)", a.cfg.ClipboardTTL)
	} else {
		r.ok("Clipboard timeout: %v", a.cfg.ClipboardTTL)
	}
	backups, _ := filepath.Glob(path + ".bak-*")
	if len(backups) > 0 {
		r.warn("%d backup(s) of older formats next to the secrets file; remove them once the migration is verified", len(backups))
	}

	return a.doctorSummary(r)
}

func (a *App) checkPermissions(r *doctorReport, path string, fix bool) {
	info, err := os.Stat(path)
	if err != nil {
		r.fail(&store.FileAccessError{Op: "open", Path: path, Err: err}, "Secrets file not found: %s", path)
		return
	}

	perm := info.Mode().Perm()
	switch {
	case perm == 0o600:
		r.ok("Secrets file permissions: %o (secure)", perm)
	case perm&0o077 != 0 && fix:
		if err := store.EnsureFilePermissions(path); err != nil {
			r.fail(&store.FileAccessError{Op: "chmod", Path: path, Err: err}, "Cannot restrict permissions: %v", err)
			return
		}
		r.ok("Secrets file permissions: %o, restricted to 600", perm)
	case perm&0o077 != 0:
		r.warn("Secrets file permissions: %o (too permissive, should be 0600)", perm)
		fmt.Fprintln(r.out, "      Fix with: tetripin doctor --fix")
	default:
		r.warn("Secrets file permissions: %o (acceptable but 0600 recommended)", perm)
	}

	if dirInfo, err := os.Stat(filepath.Dir(path)); err == nil {
		if dirInfo.Mode().Perm()&0o077 == 0 {
			r.ok("Directory permissions: %o (secure)", dirInfo.Mode().Perm())
		} else {
			r.warn("Directory permissions: %o (consider 0700)", dirInfo.Mode().Perm())
		}
	}
}

func (a *App) doctorSummary(r *doctorReport) error {
	fmt.Fprintln(r.out, "\n"+strings.Repeat("=", 40))
	if r.issues == 0 && r.warnings == 0 {
		fmt.Fprintln(r.out, "✅ All checks passed!")
		return nil
	}
	if r.warnings > 0 {
		fmt.Fprintf(r.out, "⚠️  Found %d warning(s) for consideration\n", r.warnings)
	}
	if r.issues > 0 {
		fmt.Fprintf(r.out, "❌ Found %d issue(s) that should be fixed\n", r.issues)
		return fmt.Errorf("doctor found %d issue(s): %w", r.issues, r.first)
	}
	return nil
}

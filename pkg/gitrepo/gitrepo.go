// pkg/gitrepo/gitrepo.go - idempotent repository synchronization for the toolkit self-updater.
//
// Synchronize drives the git client to make a local working copy match the
// tip of a remote branch: first run clones, later runs fetch and hard-reset.
// The local copy is non-authoritative; any local changes are discarded.
// It is safe to call on every startup.

package gitrepo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/igpadmins/igptools/pkg/logging"
)

// MinGitVersion is the oldest git client Synchronize will drive. Older
// clients lack safe.directory support, which the SYSTEM scheduled task
// depends on to operate on a user-owned working copy.
const MinGitVersion = "2.35.2"

// DefaultProbeTimeout bounds the HTTPS reachability probe.
const DefaultProbeTimeout = 5 * time.Second

// Options describes one synchronization target.
type Options struct {
	RemoteURL string
	Branch    string
	TargetDir string

	// ProbeTimeout bounds the reachability probe; zero means
	// DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

// Outcome reports what Synchronize did.
type Outcome int

const (
	// OutcomeNone is returned alongside an error.
	OutcomeNone Outcome = iota
	// OutcomeCloned means the target did not hold a repository and a fresh
	// clone was created.
	OutcomeCloned
	// OutcomeUpdated means an existing repository was fetched and
	// hard-reset to the remote branch tip.
	OutcomeUpdated
	// OutcomeSkippedOffline means the remote host was unreachable and no
	// backend operation was attempted. This is not an error.
	OutcomeSkippedOffline
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCloned:
		return "cloned"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkippedOffline:
		return "skipped (offline)"
	default:
		return "unknown"
	}
}

// Synchronize ensures a working copy of RemoteURL@Branch exists at TargetDir
// and matches the remote tip.
//
// It refuses to clone into a populated non-repository directory, treats an
// unreachable remote as a soft skip, and never prompts: every git invocation
// runs with terminal prompting suppressed so an unattended run can never
// block on credentials.
func Synchronize(ctx context.Context, opts Options) (Outcome, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	if host := probeAddress(opts.RemoteURL); host != "" {
		if !reachable(host, opts.ProbeTimeout) {
			logging.Warn("Remote host unreachable, skipping sync", "host", host, "url", opts.RemoteURL)
			return OutcomeSkippedOffline, nil
		}
	}

	gitPath, err := exec.LookPath("git")
	if err != nil {
		return 0, &SyncError{Kind: KindToolUnavailable, Path: opts.TargetDir, URL: opts.RemoteURL,
			Err: fmt.Errorf("git client not found in PATH: %w", err)}
	}
	if err := checkGitVersion(ctx, gitPath); err != nil {
		return 0, err
	}

	// Not an overwrite refusal: nothing was inspected yet, the filesystem
	// simply would not give us the directory.
	if err := os.MkdirAll(opts.TargetDir, 0755); err != nil {
		return 0, &SyncError{Kind: KindUnknown, Path: opts.TargetDir,
			Err: fmt.Errorf("cannot create target directory: %w", err)}
	}

	// Waive git's ownership check for the target. The startup task runs as
	// SYSTEM against a directory normally owned by a regular user; without
	// this entry git refuses every operation with "dubious ownership".
	registerTrustedDirectory(ctx, opts.TargetDir)

	hasRepo, err := hasRepositoryMetadata(opts.TargetDir)
	if err != nil {
		return 0, &SyncError{Kind: KindUnknown, Path: opts.TargetDir, Err: err}
	}

	if !hasRepo {
		empty, err := isDirEmpty(opts.TargetDir)
		if err != nil {
			return 0, &SyncError{Kind: KindUnknown, Path: opts.TargetDir, Err: err}
		}
		if !empty {
			return 0, &SyncError{Kind: KindUnsafeOverwrite, Path: opts.TargetDir, URL: opts.RemoteURL,
				Err: fmt.Errorf("directory is non-empty and contains no repository; refusing to clone over it")}
		}
		return clone(ctx, opts)
	}

	return update(ctx, opts)
}

// clone performs a single-branch clone of the remote into the target.
func clone(ctx context.Context, opts Options) (Outcome, error) {
	logging.Info("Cloning repository", "url", opts.RemoteURL, "branch", opts.Branch, "dir", opts.TargetDir)

	// Clone into the (empty, already created) target by name; the parent
	// is the working directory so git does not complain about reusing it.
	out, code, err := runGit(ctx, filepath.Dir(opts.TargetDir),
		"clone", "--branch", opts.Branch, "--single-branch", opts.RemoteURL, opts.TargetDir)
	if err != nil {
		return 0, &SyncError{Kind: KindCloneFailed, Path: opts.TargetDir, URL: opts.RemoteURL,
			ExitCode: code, Output: out, Err: err}
	}

	logging.Info("Clone complete", "dir", opts.TargetDir)
	return OutcomeCloned, nil
}

// update fetches from origin and hard-resets the working tree to the
// remote branch tip, then removes untracked files best-effort.
func update(ctx context.Context, opts Options) (Outcome, error) {
	warnOnRemoteMismatch(ctx, opts)

	logging.Info("Fetching from origin", "dir", opts.TargetDir, "branch", opts.Branch)
	out, code, err := runGit(ctx, opts.TargetDir, "fetch", "--prune", "origin")
	if err != nil {
		return 0, &SyncError{Kind: KindFetchFailed, Path: opts.TargetDir, URL: opts.RemoteURL,
			ExitCode: code, Output: out, Err: err}
	}

	ref := "origin/" + opts.Branch
	out, code, err = runGit(ctx, opts.TargetDir, "reset", "--hard", ref)
	if err != nil {
		return 0, &SyncError{Kind: KindResetFailed, Path: opts.TargetDir, URL: opts.RemoteURL,
			ExitCode: code, Output: out, Err: err}
	}

	// Untracked leftovers are removed best-effort; a locked file here must
	// not fail the whole sync.
	if out, _, err := runGit(ctx, opts.TargetDir, "clean", "-fd"); err != nil {
		logging.Warn("Failed to clean untracked files", "dir", opts.TargetDir, "error", err, "output", strings.TrimSpace(out))
	}

	logging.Info("Repository updated", "dir", opts.TargetDir, "ref", ref)
	return OutcomeUpdated, nil
}

// runGit executes a git command with interactive credential prompting
// suppressed. The environment flag is scoped to this one invocation.
func runGit(ctx context.Context, dir string, args ...string) (output string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	outBytes, err := cmd.CombinedOutput()
	output = string(outBytes)
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return output, exitCode, fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(output), err)
	}
	return output, 0, nil
}

// registerTrustedDirectory adds the target to git's global safe.directory
// list. Failure is logged, not fatal: on a machine where the global config
// is locked down the subsequent operations may still succeed.
func registerTrustedDirectory(ctx context.Context, dir string) {
	// git stores safe.directory entries with forward slashes
	normalized := filepath.ToSlash(dir)
	if out, _, err := runGit(ctx, "", "config", "--global", "--add", "safe.directory", normalized); err != nil {
		logging.Warn("Failed to register trusted directory", "dir", normalized, "error", err, "output", strings.TrimSpace(out))
	} else {
		logging.Debug("Registered trusted directory", "dir", normalized)
	}
}

var gitVersionRe = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)*)`)

// checkGitVersion refuses to drive a git client older than MinGitVersion.
// An unparseable version string is logged and tolerated.
func checkGitVersion(ctx context.Context, gitPath string) error {
	out, _, err := runGit(ctx, "", "version")
	if err != nil {
		return &SyncError{Kind: KindToolUnavailable, Path: gitPath,
			Err: fmt.Errorf("git client not runnable: %w", err)}
	}

	match := gitVersionRe.FindString(out)
	if match == "" {
		logging.Debug("Could not parse git version output", "output", strings.TrimSpace(out))
		return nil
	}

	current, err := goversion.NewVersion(match)
	if err != nil {
		logging.Debug("Could not parse git version", "version", match, "error", err)
		return nil
	}
	minimum := goversion.Must(goversion.NewVersion(MinGitVersion))
	if current.LessThan(minimum) {
		return &SyncError{Kind: KindToolUnavailable, Path: gitPath,
			Err: fmt.Errorf("git %s is older than required %s", current, minimum)}
	}
	return nil
}

// warnOnRemoteMismatch surfaces the foot-gun of hard-resetting a working
// copy that points at a different remote than the one configured. The sync
// still proceeds; the directory owner opted into this layout.
func warnOnRemoteMismatch(ctx context.Context, opts Options) {
	out, _, err := runGit(ctx, opts.TargetDir, "config", "--get", "remote.origin.url")
	if err != nil {
		return
	}
	actual := strings.TrimSpace(out)
	if actual != "" && actual != opts.RemoteURL {
		logging.Warn("Existing repository points at a different remote; it will be reset to that remote's branch tip",
			"configured", opts.RemoteURL, "actual", actual, "dir", opts.TargetDir)
	}
}

// hasRepositoryMetadata reports whether dir contains a .git entry. Both a
// directory (normal clone) and a file (worktree/submodule pointer) count.
func hasRepositoryMetadata(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking repository metadata: %w", err)
}

// isDirEmpty reports whether dir has no entries.
func isDirEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("error reading target directory: %w", err)
	}
	return len(entries) == 0, nil
}

// probeAddress returns the host:port to probe for the remote, or "" when the
// remote has no network host (local paths, file:// remotes) and the probe
// should be skipped.
func probeAddress(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https", "http":
	default:
		return ""
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port)
}

// reachable dials the address once within the timeout.
func reachable(address string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

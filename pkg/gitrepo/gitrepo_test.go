package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitCmd runs git in dir with identity config suitable for throwaway repos.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	full := append([]string{
		"-c", "user.name=igptools-test",
		"-c", "user.email=igptools-test@example.com",
	}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, string(out))
	return string(out)
}

// newOriginRepo creates a local repository with one commit on main and
// returns its path. It serves as the remote for Synchronize tests; local
// path remotes skip the network probe.
func newOriginRepo(t *testing.T) string {
	t.Helper()
	// Keep safe.directory registrations out of the developer's real
	// global config.
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(t.TempDir(), "gitconfig"))

	origin := t.TempDir()
	gitCmd(t, origin, "init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(origin, "tool.ps1"), []byte("v1\n"), 0644))
	gitCmd(t, origin, "add", ".")
	gitCmd(t, origin, "commit", "-m", "initial")
	return origin
}

func originHead(t *testing.T, origin string) string {
	t.Helper()
	return strings.TrimSpace(gitCmd(t, origin, "rev-parse", "HEAD"))
}

func TestSynchronizeClonesIntoAbsentDirectory(t *testing.T) {
	origin := newOriginRepo(t)
	target := filepath.Join(t.TempDir(), "toolkit")

	outcome, err := Synchronize(context.Background(), Options{
		RemoteURL: origin,
		Branch:    "main",
		TargetDir: target,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCloned, outcome)

	assert.FileExists(t, filepath.Join(target, "tool.ps1"))
	head := strings.TrimSpace(gitCmd(t, target, "rev-parse", "HEAD"))
	assert.Equal(t, originHead(t, origin), head)

	branch := strings.TrimSpace(gitCmd(t, target, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, "main", branch)
}

func TestSynchronizeConvergesAndDiscardsLocalChanges(t *testing.T) {
	origin := newOriginRepo(t)
	target := filepath.Join(t.TempDir(), "toolkit")
	opts := Options{RemoteURL: origin, Branch: "main", TargetDir: target}

	outcome, err := Synchronize(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, OutcomeCloned, outcome)

	// Advance the origin by one commit so the clone falls behind.
	require.NoError(t, os.WriteFile(filepath.Join(origin, "tool.ps1"), []byte("v2\n"), 0644))
	gitCmd(t, origin, "add", ".")
	gitCmd(t, origin, "commit", "-m", "update")

	// Dirty the working copy: modify a tracked file, add an untracked one.
	require.NoError(t, os.WriteFile(filepath.Join(target, "tool.ps1"), []byte("local edit\n"), 0644))
	untracked := filepath.Join(target, "scratch.txt")
	require.NoError(t, os.WriteFile(untracked, []byte("junk"), 0644))

	outcome, err = Synchronize(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	// Local HEAD equals origin tip, local edits gone, untracked removed.
	head := strings.TrimSpace(gitCmd(t, target, "rev-parse", "HEAD"))
	assert.Equal(t, originHead(t, origin), head)
	data, err := os.ReadFile(filepath.Join(target, "tool.ps1"))
	require.NoError(t, err)
	assert.Equal(t, "v2\n", string(data))
	assert.NoFileExists(t, untracked)
}

func TestSynchronizeIsIdempotentOnHealthyClone(t *testing.T) {
	origin := newOriginRepo(t)
	target := filepath.Join(t.TempDir(), "toolkit")
	opts := Options{RemoteURL: origin, Branch: "main", TargetDir: target}

	_, err := Synchronize(context.Background(), opts)
	require.NoError(t, err)
	firstHead := strings.TrimSpace(gitCmd(t, target, "rev-parse", "HEAD"))

	outcome, err := Synchronize(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	secondHead := strings.TrimSpace(gitCmd(t, target, "rev-parse", "HEAD"))
	assert.Equal(t, firstHead, secondHead)
}

func TestSynchronizeRefusesPopulatedNonRepository(t *testing.T) {
	origin := newOriginRepo(t)
	target := t.TempDir()
	stray := filepath.Join(target, "precious.docx")
	require.NoError(t, os.WriteFile(stray, []byte("do not lose"), 0644))

	_, err := Synchronize(context.Background(), Options{
		RemoteURL: origin,
		Branch:    "main",
		TargetDir: target,
	})
	require.Error(t, err)
	assert.Equal(t, KindUnsafeOverwrite, Kind(err))

	// The guard must not have mutated anything.
	assert.FileExists(t, stray)
	assert.NoDirExists(t, filepath.Join(target, ".git"))
}

func TestSynchronizeTargetCreationFailureIsNotOverwriteRefusal(t *testing.T) {
	origin := newOriginRepo(t)

	// A regular file where a parent directory should be makes MkdirAll
	// fail. That is an environment problem, not the data-loss guard.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	target := filepath.Join(blocker, "toolkit")

	_, err := Synchronize(context.Background(), Options{
		RemoteURL: origin,
		Branch:    "main",
		TargetDir: target,
	})
	require.Error(t, err)
	assert.Equal(t, KindUnknown, Kind(err))
}

func TestSynchronizeSkipsWhenHostUnreachable(t *testing.T) {
	target := filepath.Join(t.TempDir(), "toolkit")

	outcome, err := Synchronize(context.Background(), Options{
		// Nothing listens on the discard port; the dial fails fast.
		RemoteURL:    "https://127.0.0.1:9/it/igp-tools.git",
		Branch:       "main",
		TargetDir:    target,
		ProbeTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedOffline, outcome)

	// No backend ran, so the target directory was never created.
	assert.NoDirExists(t, target)
}

func TestProbeAddress(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"https default port", "https://git.example.com/it/tools.git", "git.example.com:443"},
		{"https explicit port", "https://git.example.com:8443/tools.git", "git.example.com:8443"},
		{"http default port", "http://git.example.com/tools.git", "git.example.com:80"},
		{"local path", `C:\Repos\tools`, ""},
		{"file scheme", "file:///C:/Repos/tools", ""},
		{"ssh remote", "ssh://git@git.example.com/tools.git", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, probeAddress(tt.remote))
		})
	}
}

func TestKindOnForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, Kind(os.ErrNotExist))
	assert.Equal(t, KindCloneFailed, Kind(&SyncError{Kind: KindCloneFailed}))
}

func TestSyncErrorMessageCarriesContext(t *testing.T) {
	err := &SyncError{
		Kind:     KindFetchFailed,
		Path:     `C:\Program Files\IGPTools\toolkit`,
		URL:      "https://git.example.com/it/tools.git",
		ExitCode: 128,
	}
	msg := err.Error()
	assert.Contains(t, msg, "FetchFailed")
	assert.Contains(t, msg, "exit=128")
	assert.Contains(t, msg, "git.example.com")
}

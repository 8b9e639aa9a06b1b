package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igpadmins/igptools/pkg/gitrepo"
)

// Unattended runs must never surface an error through the exit code:
// a non-zero exit would record a failed task in the scheduler history
// for what is usually a transient network problem.
func TestStartupSwallowsSyncFailure(t *testing.T) {
	orig := synchronize
	defer func() { synchronize = orig }()

	synchronize = func(ctx context.Context, opts gitrepo.Options) (gitrepo.Outcome, error) {
		return gitrepo.OutcomeNone, &gitrepo.SyncError{
			Kind: gitrepo.KindFetchFailed,
			Path: opts.TargetDir,
			URL:  opts.RemoteURL,
			Err:  errors.New("fetch refused"),
		}
	}

	exit := runStartup(gitrepo.Options{
		RemoteURL: "https://git.example.com/it/tools.git",
		Branch:    "main",
		TargetDir: `C:\Program Files\IGPTools\toolkit`,
	})
	assert.Equal(t, 0, exit)
}

func TestStartupExitsZeroOnSuccess(t *testing.T) {
	orig := synchronize
	defer func() { synchronize = orig }()

	synchronize = func(ctx context.Context, opts gitrepo.Options) (gitrepo.Outcome, error) {
		return gitrepo.OutcomeUpdated, nil
	}

	assert.Equal(t, 0, runStartup(gitrepo.Options{
		RemoteURL: "https://git.example.com/it/tools.git",
		Branch:    "main",
		TargetDir: `C:\Program Files\IGPTools\toolkit`,
	}))
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input string
		want  menuAction
	}{
		{"1\n", actionSync},
		{"2\n", actionToggleTrigger},
		{"3\n", actionStatus},
		{"q\n", actionQuit},
		{"QUIT\n", actionQuit},
		{"exit\n", actionQuit},
		{"7\n", actionUnknown},
		{"\n", actionUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseAction(tt.input), "input %q", tt.input)
	}
}

package shutdown

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igpadmins/igptools/pkg/schtask"
)

// recordingTasks is a schtask runner that accepts everything and remembers
// whether a create happened.
func recordingTasks(created *[]string) *schtask.Manager {
	registered := false
	return schtask.NewWithRunner(func(args ...string) (string, error) {
		switch args[0] {
		case "/Create":
			registered = true
			*created = append(*created, args[2])
			return "SUCCESS", nil
		case "/Query":
			if registered {
				return "\"\\" + TaskName + "\",\"N/A\",\"Ready\"\n", nil
			}
			return "ERROR", errors.New("exit status 1")
		case "/Delete":
			return "ERROR", errors.New("exit status 1")
		case "/Change":
			return "SUCCESS", nil
		}
		return "", nil
	})
}

func TestEnableDailyRegistersTrigger(t *testing.T) {
	var created []string
	c := NewWithBackends(recordingTasks(&created), nil)

	require.NoError(t, c.EnableDaily("22:00"))
	assert.Equal(t, []string{TaskName}, created)

	info, err := c.QueryDaily()
	require.NoError(t, err)
	assert.True(t, info.Enabled)
}

func TestEnableDailyQuotesTaskComment(t *testing.T) {
	// The task action's argument string is retokenized by shutdown.exe;
	// an unquoted multi-word comment would bind only its first word to /c
	// and fail the whole invocation with a usage error.
	var doc string
	tasks := schtask.NewWithRunner(func(args ...string) (string, error) {
		if args[0] == "/Create" {
			data, err := os.ReadFile(args[4])
			require.NoError(t, err)
			doc = string(data)
		}
		return "", nil
	})
	c := NewWithBackends(tasks, nil)

	require.NoError(t, c.EnableDaily("22:00"))
	// Double quotes appear XML-escaped inside the task document.
	assert.Contains(t, doc, "/s /f /t 60 /c &#34;Scheduled shutdown by IGP Tools&#34;")
}

func TestTaskArgumentsQuoting(t *testing.T) {
	assert.Equal(t, `/s /f /t 60 /c "nightly maintenance window"`,
		taskArguments(time.Minute, "nightly maintenance window"))
	assert.Equal(t, "/s /f /t 300", taskArguments(5*time.Minute, ""))
}

func TestEnableDailyRejectsBadTime(t *testing.T) {
	var created []string
	c := NewWithBackends(recordingTasks(&created), nil)

	assert.Error(t, c.EnableDaily("25:99"))
	assert.Error(t, c.EnableDaily("10pm"))
	assert.Empty(t, created)
}

func TestDisableDailyOnMissingTrigger(t *testing.T) {
	var created []string
	c := NewWithBackends(recordingTasks(&created), nil)

	result, err := c.DisableDaily()
	require.NoError(t, err)
	assert.Equal(t, schtask.AlreadyDisabled, result)
}

func TestNowBuildsForcedShutdown(t *testing.T) {
	var got []string
	c := NewWithBackends(nil, func(args ...string) (string, error) {
		got = args
		return "", nil
	})

	require.NoError(t, c.Now(5*time.Minute, "maintenance window"))
	assert.Equal(t, []string{"/s", "/f", "/t", "300", "/c", "maintenance window"}, got)
}

func TestCancelReportsNothingPending(t *testing.T) {
	c := NewWithBackends(nil, func(args ...string) (string, error) {
		assert.Equal(t, []string{"/a"}, args)
		return "Unable to abort the system shutdown (1116)", errors.New("exit status 1116")
	})

	err := c.Cancel()
	assert.Error(t, err)
}

// pkg/shutdown/shutdown.go - scheduled and immediate workstation shutdown.
//
// The daily shutdown trigger is the disable-in-place flavor: disabling it
// keeps the registration so an operator can re-enable it without re-entering
// the schedule. This differs deliberately from the sync trigger, which is
// deleted outright on disable.

package shutdown

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/schtask"
)

// TaskName is the fixed name of the daily shutdown trigger.
const TaskName = "IGP Scheduled Shutdown"

// Runner executes shutdown.exe. Injectable for tests.
type Runner func(args ...string) (string, error)

func runShutdownExe(args ...string) (string, error) {
	out, err := exec.Command("shutdown.exe", args...).CombinedOutput()
	return string(out), err
}

// Controller issues shutdown commands and manages the daily trigger.
type Controller struct {
	tasks *schtask.Manager
	run   Runner
}

// New returns a Controller using the real scheduler and shutdown.exe.
func New() *Controller {
	return &Controller{tasks: schtask.New(), run: runShutdownExe}
}

// NewWithBackends returns a Controller with injected backends.
func NewWithBackends(tasks *schtask.Manager, run Runner) *Controller {
	return &Controller{tasks: tasks, run: run}
}

// EnableDaily registers (or replaces) the daily shutdown trigger firing at
// the given 24h "HH:MM" time.
func (c *Controller) EnableDaily(at string) error {
	if err := validateTime(at); err != nil {
		return err
	}
	def := schtask.Definition{
		Name:        TaskName,
		Description: "Shuts the workstation down at the scheduled time.",
		Command:     `C:\Windows\System32\shutdown.exe`,
		Arguments:   taskArguments(time.Minute, "Scheduled shutdown by IGP Tools"),
		RunAs:       "SYSTEM",
		Trigger:     schtask.Trigger{Kind: schtask.DailyAt, At: at},
		TimeLimit:   5 * time.Minute,
	}
	if err := c.tasks.Enable(def); err != nil {
		return err
	}
	logging.Info("Daily shutdown enabled", "task", TaskName, "at", at)
	return nil
}

// DisableDaily disables the trigger in place. A missing trigger is a
// no-op, not an error.
func (c *Controller) DisableDaily() (schtask.DisableResult, error) {
	return c.tasks.Disable(TaskName, schtask.DisableInPlace)
}

// QueryDaily returns the trigger state, or schtask.ErrNotFound.
func (c *Controller) QueryDaily() (*schtask.TaskInfo, error) {
	return c.tasks.Query(TaskName)
}

// Now initiates a shutdown after the given grace period.
func (c *Controller) Now(grace time.Duration, comment string) error {
	out, err := c.run(immediateArgs(grace, comment)...)
	if err != nil {
		return fmt.Errorf("failed to initiate shutdown: %w: %s", err, strings.TrimSpace(out))
	}
	logging.Info("Shutdown initiated", "grace", grace.String())
	return nil
}

// Cancel aborts a pending shutdown. shutdown.exe exits non-zero when
// nothing is pending; that is reported as-is for the caller to display.
func (c *Controller) Cancel() error {
	out, err := c.run("/a")
	if err != nil {
		return fmt.Errorf("no shutdown to cancel: %w: %s", err, strings.TrimSpace(out))
	}
	logging.Info("Pending shutdown cancelled")
	return nil
}

// taskArguments renders the forced-shutdown arguments as the single
// command-line string a task action carries. Task Scheduler hands that
// string to shutdown.exe verbatim, which retokenizes it on spaces, so the
// comment must be quoted or only its first word would bind to /c.
func taskArguments(grace time.Duration, comment string) string {
	s := strings.Join(immediateArgs(grace, ""), " ")
	if comment != "" {
		s += ` /c "` + comment + `"`
	}
	return s
}

// immediateArgs builds the shutdown.exe argument list for a forced
// shutdown after the grace period.
func immediateArgs(grace time.Duration, comment string) []string {
	args := []string{"/s", "/f", "/t", strconv.Itoa(int(grace.Seconds()))}
	if comment != "" {
		args = append(args, "/c", comment)
	}
	return args
}

// validateTime checks a 24h "HH:MM" string.
func validateTime(at string) error {
	if _, err := time.Parse("15:04", at); err != nil {
		return fmt.Errorf("invalid shutdown time %q, expected HH:MM (24h): %w", at, err)
	}
	return nil
}

// pkg/schtask/schtask.go - lifecycle management for named Windows scheduled tasks.
//
// The package wraps SCHTASKS.EXE. Enable uses replace semantics: any task
// with the same name is deleted first, then a fresh definition is
// registered. The scheduler's update primitives behave differently per
// definition field, so full replacement is simpler and more robust than
// diffing the previous registration.

package schtask

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/igpadmins/igptools/pkg/logging"
)

// TriggerKind is the firing condition of a task.
type TriggerKind int

const (
	// AtStartup fires once per boot.
	AtStartup TriggerKind = iota
	// DailyAt fires every day at Trigger.At (24h "HH:MM").
	DailyAt
)

// Trigger is a firing condition.
type Trigger struct {
	Kind TriggerKind
	At   string // only for DailyAt
}

// Flavor selects the Disable behavior of a managed task.
type Flavor int

const (
	// DeleteOnDisable unregisters the task entirely on Disable.
	DeleteOnDisable Flavor = iota
	// DisableInPlace keeps the definition and flips its enabled flag.
	DisableInPlace
)

// Definition describes a task to register.
type Definition struct {
	Name        string
	Description string
	Command     string
	Arguments   string
	RunAs       string // "SYSTEM" or an account name
	Trigger     Trigger
	TimeLimit   time.Duration // OS-enforced execution ceiling; 0 = unlimited
}

// TaskInfo is the queried state of a registered task.
type TaskInfo struct {
	Name    string
	NextRun string
	Status  string
	Enabled bool
}

// DisableResult reports what Disable did.
type DisableResult int

const (
	// Disabled means the task existed and was disabled or deleted.
	Disabled DisableResult = iota
	// AlreadyDisabled means no task with that name was registered. This
	// is a normal outcome, not an error.
	AlreadyDisabled
)

// ErrNotFound is returned by Query when no task with the name exists.
var ErrNotFound = errors.New("scheduled task not found")

// RegistrationError carries the scheduler's output when registering fails.
type RegistrationError struct {
	Name   string
	Output string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register scheduled task %q: %v: %s", e.Name, e.Err, strings.TrimSpace(e.Output))
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Runner executes SCHTASKS.EXE with the given arguments. Injectable so
// tests can observe the calls without touching the real scheduler.
type Runner func(args ...string) (string, error)

// Manager manages named scheduled tasks.
type Manager struct {
	run Runner
}

// New returns a Manager that shells out to SCHTASKS.EXE.
func New() *Manager {
	return &Manager{run: runSchtasks}
}

// NewWithRunner returns a Manager using a custom runner.
func NewWithRunner(run Runner) *Manager {
	return &Manager{run: run}
}

// runSchtasks is the production runner.
func runSchtasks(args ...string) (string, error) {
	cmd := exec.Command("SCHTASKS.EXE", args...)
	out, err := cmd.CombinedOutput()
	logging.Debug("SCHTASKS invocation", "args", strings.Join(args, " "), "error", err)
	return string(out), err
}

// Query returns the state of the named task, or ErrNotFound.
func (m *Manager) Query(name string) (*TaskInfo, error) {
	out, err := m.run("/Query", "/TN", name, "/FO", "CSV", "/NH")
	if err != nil {
		// SCHTASKS exits non-zero for a missing task; anything it has to
		// say beyond that is only useful at debug level.
		logging.Debug("Task query returned error", "task", name, "output", strings.TrimSpace(out))
		return nil, ErrNotFound
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil || len(records) == 0 || len(records[0]) < 3 {
		return nil, fmt.Errorf("unexpected SCHTASKS query output for %q: %q", name, strings.TrimSpace(out))
	}

	rec := records[0]
	status := strings.TrimSpace(rec[2])
	return &TaskInfo{
		Name:    strings.TrimPrefix(strings.TrimSpace(rec[0]), `\`),
		NextRun: strings.TrimSpace(rec[1]),
		Status:  status,
		Enabled: !strings.EqualFold(status, "Disabled"),
	}, nil
}

// Enable registers the task definition, replacing any existing task with
// the same name. The brief window with no task registered is acceptable:
// enable is a rare operator action, not something running under load.
func (m *Manager) Enable(def Definition) error {
	if out, err := m.run("/Delete", "/TN", def.Name, "/F"); err != nil {
		// Normal when the task does not exist yet.
		logging.Debug("Could not delete existing task before create", "task", def.Name, "output", strings.TrimSpace(out))
	}

	xmlDoc, err := buildTaskXML(def)
	if err != nil {
		return &RegistrationError{Name: def.Name, Err: err}
	}

	xmlPath, err := writeTempXML(def.Name, xmlDoc)
	if err != nil {
		return &RegistrationError{Name: def.Name, Err: err}
	}
	defer os.Remove(xmlPath)

	out, err := m.run("/Create", "/TN", def.Name, "/XML", xmlPath, "/F")
	if err != nil {
		return &RegistrationError{Name: def.Name, Output: out, Err: err}
	}

	logging.Info("Registered scheduled task", "task", def.Name)
	return nil
}

// Disable removes or disables the named task depending on its flavor.
// A missing task reports AlreadyDisabled, never an error.
func (m *Manager) Disable(name string, flavor Flavor) (DisableResult, error) {
	if _, err := m.Query(name); errors.Is(err, ErrNotFound) {
		logging.Debug("Task already absent", "task", name)
		return AlreadyDisabled, nil
	}

	switch flavor {
	case DeleteOnDisable:
		out, err := m.run("/Delete", "/TN", name, "/F")
		if err != nil {
			return AlreadyDisabled, fmt.Errorf("failed to delete scheduled task %q: %w: %s", name, err, strings.TrimSpace(out))
		}
		logging.Info("Deleted scheduled task", "task", name)
	case DisableInPlace:
		out, err := m.run("/Change", "/TN", name, "/DISABLE")
		if err != nil {
			return AlreadyDisabled, fmt.Errorf("failed to disable scheduled task %q: %w: %s", name, err, strings.TrimSpace(out))
		}
		logging.Info("Disabled scheduled task", "task", name)
	}
	return Disabled, nil
}

// writeTempXML spills the task document to a temp file for /Create /XML.
func writeTempXML(name string, doc []byte) (string, error) {
	f, err := os.CreateTemp("", sanitizeName(name)+"-*.xml")
	if err != nil {
		return "", fmt.Errorf("failed to create task XML temp file: %w", err)
	}
	if _, err := f.Write(doc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write task XML: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// sanitizeName makes a task name safe for use in a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\\', '/', ':':
			return '-'
		}
		return r
	}, name)
}

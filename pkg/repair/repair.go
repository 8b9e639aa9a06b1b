// pkg/repair/repair.go - wrappers around the Windows system file repair utilities.
//
// DISM and SFC are driven as opaque subprocesses; this package adds exit
// code capture and a coarse classification of their results so the menu can
// tell an operator what actually happened.

package repair

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/igpadmins/igptools/pkg/logging"
)

// HealthAction selects the DISM /Cleanup-Image operation to run.
type HealthAction int

const (
	// CheckHealth asks the servicing stack whether corruption has been
	// flagged; seconds, no scan.
	CheckHealth HealthAction = iota
	// ScanHealth scans the component store for corruption.
	ScanHealth
	// RestoreHealth scans and repairs, pulling sources from Windows
	// Update when needed.
	RestoreHealth
)

// String returns the DISM switch for the action.
func (a HealthAction) String() string {
	switch a {
	case CheckHealth:
		return "/CheckHealth"
	case ScanHealth:
		return "/ScanHealth"
	case RestoreHealth:
		return "/RestoreHealth"
	default:
		return "/CheckHealth"
	}
}

// Verdict is the classified outcome of a repair run.
type Verdict int

const (
	// Healthy means no corruption was found.
	Healthy Verdict = iota
	// Repaired means corruption was found and fixed.
	Repaired
	// CorruptionFound means corruption was found and NOT fixed (scan-only
	// action, or repair sources unavailable).
	CorruptionFound
	// Failed means the utility itself failed.
	Failed
)

// String returns the string representation of the Verdict.
func (v Verdict) String() string {
	switch v {
	case Healthy:
		return "healthy"
	case Repaired:
		return "repaired"
	case CorruptionFound:
		return "corruption found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one utility invocation.
type Result struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Verdict  Verdict
}

// Runner executes a repair utility and returns its combined output and
// exit code. Injectable for tests.
type Runner func(tool string, args ...string) (string, int, error)

// runTool is the production runner; output is streamed to the console so
// the operator sees DISM/SFC progress as it happens.
func runTool(tool string, args ...string) (string, int, error) {
	cmd := exec.Command(tool, args...)
	var buf strings.Builder
	cmd.Stdout = &multiWriter{&buf}
	cmd.Stderr = &multiWriter{&buf}
	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		err = nil
	}
	return buf.String(), exitCode, err
}

// multiWriter tees utility output to the console while capturing it.
type multiWriter struct {
	buf *strings.Builder
}

func (w *multiWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return w.buf.Write(p)
}

// Repairer runs the system file repair utilities.
type Repairer struct {
	run Runner
}

// New returns a Repairer that executes the real utilities.
func New() *Repairer {
	return &Repairer{run: runTool}
}

// NewWithRunner returns a Repairer using a custom runner.
func NewWithRunner(run Runner) *Repairer {
	return &Repairer{run: run}
}

// DISM runs DISM /Online /Cleanup-Image with the chosen action.
func (r *Repairer) DISM(action HealthAction) (*Result, error) {
	args := []string{"/Online", "/Cleanup-Image", action.String()}
	logging.Info("Running DISM", "action", action.String())

	out, code, err := r.run("DISM.exe", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run DISM: %w", err)
	}

	result := &Result{Tool: "DISM", Args: args, ExitCode: code, Output: out}
	result.Verdict = classifyDISM(action, code, out)
	logging.Info("DISM finished", "action", action.String(), "exit", code, "verdict", result.Verdict)
	return result, nil
}

// SFC runs SFC /scannow.
func (r *Repairer) SFC() (*Result, error) {
	args := []string{"/scannow"}
	logging.Info("Running SFC /scannow")

	out, code, err := r.run("sfc.exe", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run SFC: %w", err)
	}

	result := &Result{Tool: "SFC", Args: args, ExitCode: code, Output: out}
	result.Verdict = classifySFC(code, out)
	logging.Info("SFC finished", "exit", code, "verdict", result.Verdict)
	return result, nil
}

// classifyDISM maps a DISM exit code and transcript to a Verdict.
// Exit 0 covers both "no corruption" and "repaired", so the transcript
// decides; 87 means a bad argument (wrong Windows edition or typo).
func classifyDISM(action HealthAction, code int, out string) Verdict {
	if code == 87 {
		return Failed
	}
	if code != 0 {
		return Failed
	}
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "no component store corruption detected"):
		return Healthy
	case strings.Contains(lower, "the restore operation completed successfully"):
		return Repaired
	case strings.Contains(lower, "the component store is repairable"):
		if action == RestoreHealth {
			return Repaired
		}
		return CorruptionFound
	case strings.Contains(lower, "component store corruption detected"):
		return CorruptionFound
	}
	return Healthy
}

// classifySFC maps an SFC exit code and transcript to a Verdict. SFC's
// exit codes are unreliable across Windows builds; the transcript is the
// source of truth when exit is 0.
func classifySFC(code int, out string) Verdict {
	if code != 0 {
		return Failed
	}
	// SFC writes UTF-16 to pipes on some builds; interleaved NULs would
	// break substring matches.
	lower := strings.ToLower(strings.ReplaceAll(out, "\x00", ""))
	switch {
	case strings.Contains(lower, "did not find any integrity violations"):
		return Healthy
	case strings.Contains(lower, "successfully repaired"):
		return Repaired
	case strings.Contains(lower, "found corrupt files"):
		return CorruptionFound
	}
	return Healthy
}

// cmd/synctool/main.go - toolkit self-update: repository sync and its startup trigger.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/igpadmins/igptools/pkg/config"
	"github.com/igpadmins/igptools/pkg/gitrepo"
	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/privilege"
	"github.com/igpadmins/igptools/pkg/schtask"
	"github.com/igpadmins/igptools/pkg/sysinfo"
	"github.com/igpadmins/igptools/pkg/version"
)

// SyncTaskName is the fixed name of the unattended startup sync trigger.
const SyncTaskName = "IGP Pull IGP Tools"

// menuAction is the closed set of interactive menu selections.
type menuAction int

const (
	actionUnknown menuAction = iota
	actionSync
	actionToggleTrigger
	actionStatus
	actionQuit
)

var logger *logging.Logger

// synchronize is swappable in tests so the startup contract can be
// exercised without a git client or network.
var synchronize = gitrepo.Synchronize

func main() {
	// Define command-line flags.
	mode := pflag.String("mode", "interactive", "Execution mode: interactive or startup.")
	repoURL := pflag.String("repo-url", "", "Remote repository URL (overrides configuration).")
	branch := pflag.String("branch", "", "Branch to synchronize (overrides configuration).")
	targetDir := pflag.String("target-dir", "", "Local working copy path (overrides configuration).")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	// Count the number of -v flags.
	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := logging.LevelForVerbosity(verbosity)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	// Unattended runs must leave a readable trail even without -v flags.
	if *mode == "startup" && level < logging.LevelInfo {
		level = logging.LevelInfo
	}

	logger = logging.New(level)
	if err := logging.Init(cfg.LogPath, "synctool", level); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	// Flag values win over configuration.
	if *repoURL != "" {
		cfg.RepoURL = *repoURL
	}
	if *branch != "" {
		cfg.Branch = *branch
	}
	if *targetDir != "" {
		cfg.TargetDir = *targetDir
	}

	if *showConfig {
		if cfgYaml, err := yaml.Marshal(cfg); err == nil {
			logger.Printf("Current configuration:\n%s", string(cfgYaml))
		}
		os.Exit(0)
	}

	// Both modes mutate machine state; neither can proceed unprivileged.
	// In startup mode a missing privilege indicates a broken deployment
	// (the task should run as SYSTEM), so it is not silently skipped.
	admin, adminErr := privilege.IsAdmin()
	if adminErr != nil || !admin {
		logger.Fatal("Administrative access required. Error: %v, Admin: %v", adminErr, admin)
	}

	opts := gitrepo.Options{
		RemoteURL: cfg.RepoURL,
		Branch:    cfg.Branch,
		TargetDir: cfg.TargetDir,
	}

	switch *mode {
	case "startup":
		os.Exit(runStartup(opts))
	case "interactive":
		runInteractive(cfg, opts)
		os.Exit(0)
	default:
		logger.Error("Unknown mode: %s", *mode)
		pflag.Usage()
		os.Exit(1)
	}
}

// runStartup performs one unattended sync and returns the process exit
// code. Failures are logged and swallowed: Task Scheduler must never see
// a failed task for a transient sync problem, so this always returns 0.
func runStartup(opts gitrepo.Options) int {
	logging.Info("Startup sync", "url", opts.RemoteURL, "branch", opts.Branch, "dir", opts.TargetDir)

	outcome, err := synchronize(context.Background(), opts)
	if err != nil {
		logging.Warn("Toolkit sync failed; will retry at next startup", "error", err)
		return 0
	}
	logging.Info("Toolkit sync finished", "outcome", outcome.String())
	return 0
}

// runInteractive presents the operator menu. Each selection's failure is
// logged, displayed and acknowledged; the loop itself never dies to one
// failed action.
func runInteractive(cfg *config.Configuration, opts gitrepo.Options) {
	reader := bufio.NewReader(os.Stdin)
	tasks := schtask.New()

	for {
		triggerLabel := "Enable startup sync task"
		if _, err := tasks.Query(SyncTaskName); err == nil {
			triggerLabel = "Disable startup sync task"
		}

		fmt.Println()
		fmt.Println("IGP Tools - toolkit updater")
		fmt.Println("  [1] Synchronize toolkit now")
		fmt.Printf("  [2] %s\n", triggerLabel)
		fmt.Println("  [3] Show status")
		fmt.Println("  [q] Quit")
		fmt.Print("Select: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			// Stdin closed; treat like quit.
			return
		}

		switch parseAction(line) {
		case actionSync:
			outcome, err := synchronize(context.Background(), opts)
			if err != nil {
				logger.Error("Synchronization failed: %v", err)
				pause(reader)
				continue
			}
			logger.Success("Toolkit synchronized: %s", outcome)
		case actionToggleTrigger:
			if err := toggleTrigger(tasks, cfg, opts); err != nil {
				logger.Error("Scheduled task change failed: %v", err)
				pause(reader)
			}
		case actionStatus:
			showStatus(tasks, opts)
		case actionQuit:
			return
		case actionUnknown:
			fmt.Println("Invalid selection.")
		}
	}
}

// parseAction maps operator input to the closed action set.
func parseAction(line string) menuAction {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "1":
		return actionSync
	case "2":
		return actionToggleTrigger
	case "3":
		return actionStatus
	case "q", "quit", "exit":
		return actionQuit
	default:
		return actionUnknown
	}
}

// toggleTrigger flips the startup sync task: registered -> deleted,
// absent -> registered with the current configuration baked into the
// task arguments.
func toggleTrigger(tasks *schtask.Manager, cfg *config.Configuration, opts gitrepo.Options) error {
	if _, err := tasks.Query(SyncTaskName); err == nil {
		result, err := tasks.Disable(SyncTaskName, schtask.DeleteOnDisable)
		if err != nil {
			return err
		}
		if result == schtask.AlreadyDisabled {
			logger.Info("Startup sync task was already absent")
		} else {
			logger.Success("Startup sync task removed")
		}
		return nil
	} else if !errors.Is(err, schtask.ErrNotFound) {
		return err
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine executable path: %w", err)
	}

	def := schtask.Definition{
		Name:        SyncTaskName,
		Description: "Synchronizes the IGP toolkit working copy at system startup.",
		Command:     exePath,
		Arguments: fmt.Sprintf(`--mode startup --repo-url %s --branch %s --target-dir "%s"`,
			opts.RemoteURL, opts.Branch, opts.TargetDir),
		RunAs:     "SYSTEM",
		Trigger:   schtask.Trigger{Kind: schtask.AtStartup},
		TimeLimit: taskTimeLimit(cfg),
	}
	if err := tasks.Enable(def); err != nil {
		return err
	}
	logger.Success("Startup sync task registered: %s", SyncTaskName)
	return nil
}

// showStatus prints system facts, trigger state and working copy state.
func showStatus(tasks *schtask.Manager, opts gitrepo.Options) {
	fmt.Println()
	for _, line := range sysinfo.Collect().Lines() {
		fmt.Println(line)
	}

	if info, err := tasks.Query(SyncTaskName); err == nil {
		fmt.Printf("Startup task:  %s (%s)\n", info.Name, info.Status)
	} else {
		fmt.Println("Startup task:  not registered")
	}

	fmt.Printf("Repository:    %s @ %s\n", opts.RemoteURL, opts.Branch)
	if _, err := os.Stat(opts.TargetDir); err == nil {
		fmt.Printf("Working copy:  %s\n", opts.TargetDir)
	} else {
		fmt.Printf("Working copy:  %s (not yet cloned)\n", opts.TargetDir)
	}
}

// pause waits for operator acknowledgment before redisplaying the menu.
func pause(reader *bufio.Reader) {
	fmt.Print("Press Enter to continue...")
	reader.ReadString('\n')
}

// taskTimeLimit converts the configured ceiling to a duration.
func taskTimeLimit(cfg *config.Configuration) time.Duration {
	return time.Duration(cfg.TaskTimeLimitMinutes) * time.Minute
}

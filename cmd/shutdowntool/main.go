// cmd/shutdowntool/main.go - manage the daily shutdown trigger and immediate shutdowns.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/igpadmins/igptools/pkg/config"
	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/privilege"
	"github.com/igpadmins/igptools/pkg/schtask"
	"github.com/igpadmins/igptools/pkg/shutdown"
	"github.com/igpadmins/igptools/pkg/sysinfo"
	"github.com/igpadmins/igptools/pkg/version"
)

var logger *logging.Logger

func main() {
	enable := pflag.Bool("enable", false, "Register the daily shutdown trigger.")
	disable := pflag.Bool("disable", false, "Disable the daily shutdown trigger in place.")
	status := pflag.Bool("status", false, "Show the trigger state and exit.")
	now := pflag.Bool("now", false, "Shut down immediately after the grace period.")
	cancel := pflag.Bool("cancel", false, "Cancel a pending shutdown.")
	at := pflag.String("at", "", "Daily shutdown time, 24h HH:MM (overrides configuration).")
	grace := pflag.Duration("grace", 60*time.Second, "Grace period before an immediate shutdown.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

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
	logger = logging.New(level)
	if err := logging.Init(cfg.LogPath, "shutdowntool", level); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	if *status {
		showStatus(shutdown.New())
		os.Exit(0)
	}

	admin, adminErr := privilege.IsAdmin()
	if adminErr != nil || !admin {
		logger.Fatal("Administrative access required. Error: %v, Admin: %v", adminErr, admin)
	}

	ctl := shutdown.New()
	switch {
	case *enable:
		when := *at
		if when == "" {
			when = cfg.ShutdownTime
		}
		if err := ctl.EnableDaily(when); err != nil {
			logger.Fatal("Failed to enable daily shutdown: %v", err)
		}
		logger.Success("Daily shutdown scheduled for %s", when)
	case *disable:
		result, err := ctl.DisableDaily()
		if err != nil {
			logger.Fatal("Failed to disable daily shutdown: %v", err)
		}
		if result == schtask.AlreadyDisabled {
			logger.Info("Daily shutdown trigger is not registered")
		} else {
			logger.Success("Daily shutdown disabled")
		}
	case *now:
		if err := ctl.Now(*grace, "Shutdown requested by IGP Tools"); err != nil {
			logger.Fatal("Failed to initiate shutdown: %v", err)
		}
		logger.Success("Shutdown in %s; run with --cancel to abort", grace.String())
	case *cancel:
		if err := ctl.Cancel(); err != nil {
			logger.Fatal("Failed to cancel shutdown: %v", err)
		}
		logger.Success("Pending shutdown cancelled")
	default:
		pflag.Usage()
		os.Exit(1)
	}
}

// showStatus prints system uptime and the trigger registration state.
func showStatus(ctl *shutdown.Controller) {
	for _, line := range sysinfo.Collect().Lines() {
		fmt.Println(line)
	}

	info, err := ctl.QueryDaily()
	if errors.Is(err, schtask.ErrNotFound) {
		fmt.Println("Daily shutdown: not registered")
		return
	}
	if err != nil {
		logger.Fatal("Failed to query daily shutdown trigger: %v", err)
	}
	state := "disabled"
	if info.Enabled {
		state = "enabled"
	}
	fmt.Printf("Daily shutdown: %s (%s, next run %s)\n", state, info.Status, info.NextRun)
}

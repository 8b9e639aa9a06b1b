// cmd/installtool/main.go - install or update the toolkit updater binary.
//
// Fetches the updater executable, verifies it, drops a Start Menu shortcut
// for the interactive updater, and optionally registers the startup sync
// trigger so freshly imaged machines pull the toolkit on first boot.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/igpadmins/igptools/pkg/config"
	"github.com/igpadmins/igptools/pkg/download"
	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/privilege"
	"github.com/igpadmins/igptools/pkg/schtask"
	"github.com/igpadmins/igptools/pkg/shortcut"
	"github.com/igpadmins/igptools/pkg/version"
)

// startMenuFolder groups the toolkit shortcuts under one Start Menu entry.
const startMenuFolder = "IGP Tools"

var logger *logging.Logger

func main() {
	updaterURL := pflag.String("updater-url", "", "Updater download URL (overrides configuration).")
	sha256Flag := pflag.String("sha256", "", "Expected SHA-256 of the updater (overrides configuration).")
	skipShortcut := pflag.Bool("skip-shortcut", false, "Do not create the Start Menu shortcut.")
	enableTask := pflag.Bool("enable-startup-task", false, "Register the startup sync task after installing.")
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
	if err := logging.Init(cfg.LogPath, "installtool", level); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	admin, adminErr := privilege.IsAdmin()
	if adminErr != nil || !admin {
		logger.Fatal("Administrative access required. Error: %v, Admin: %v", adminErr, admin)
	}

	if *updaterURL != "" {
		cfg.UpdaterURL = *updaterURL
	}
	if *sha256Flag != "" {
		cfg.UpdaterSHA256 = *sha256Flag
	}
	if cfg.UpdaterURL == "" {
		logger.Fatal("No updater URL configured; set UpdaterURL or pass --updater-url")
	}

	updaterPath := filepath.Join(cfg.InstallPath, "synctool.exe")
	if err := download.DownloadFile(cfg.UpdaterURL, updaterPath, download.Options{SHA256: cfg.UpdaterSHA256}); err != nil {
		logger.Fatal("Failed to download updater: %v", err)
	}
	logger.Success("Updater installed: %s", updaterPath)

	if !*skipShortcut {
		sc := shortcut.Shortcut{
			Name:        "IGP Tools Updater",
			Folder:      startMenuFolder,
			Target:      updaterPath,
			WorkingDir:  cfg.InstallPath,
			Description: "Synchronize the IGP toolkit and manage its startup trigger.",
		}
		if err := shortcut.CreateStartMenu(sc); err != nil {
			logger.Fatal("Failed to create Start Menu shortcut: %v", err)
		}
		logger.Success("Start Menu shortcut created under %s", startMenuFolder)
	}

	if *enableTask {
		def := schtask.Definition{
			Name:        "IGP Pull IGP Tools",
			Description: "Synchronizes the IGP toolkit working copy at system startup.",
			Command:     updaterPath,
			Arguments: fmt.Sprintf(`--mode startup --repo-url %s --branch %s --target-dir "%s"`,
				cfg.RepoURL, cfg.Branch, cfg.TargetDir),
			RunAs:     "SYSTEM",
			Trigger:   schtask.Trigger{Kind: schtask.AtStartup},
			TimeLimit: time.Duration(cfg.TaskTimeLimitMinutes) * time.Minute,
		}
		if err := schtask.New().Enable(def); err != nil {
			logger.Fatal("Failed to register startup sync task: %v", err)
		}
		logger.Success("Startup sync task registered: %s", def.Name)
	}

	// Persist any overrides so the installed updater sees the same source.
	if err := config.SaveConfig(cfg); err != nil {
		logger.Warning("Could not persist configuration: %v", err)
	}
}

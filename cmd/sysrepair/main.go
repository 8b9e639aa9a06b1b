// cmd/sysrepair/main.go - interactive front end for DISM and SFC image repair.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/igpadmins/igptools/pkg/config"
	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/privilege"
	"github.com/igpadmins/igptools/pkg/repair"
	"github.com/igpadmins/igptools/pkg/version"
)

var logger *logging.Logger

func main() {
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
	if err := logging.Init(cfg.LogPath, "sysrepair", level); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	// DISM and SFC both refuse to run without elevation.
	admin, adminErr := privilege.IsAdmin()
	if adminErr != nil || !admin {
		logger.Fatal("Administrative access required. Error: %v, Admin: %v", adminErr, admin)
	}

	runMenu(repair.New())
}

// runMenu loops the repair menu until the operator quits.
func runMenu(r *repair.Repairer) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println()
		fmt.Println("IGP Tools - system image repair")
		fmt.Println("  [1] DISM check health (fast)")
		fmt.Println("  [2] DISM scan health")
		fmt.Println("  [3] DISM restore health (repairs)")
		fmt.Println("  [4] SFC /scannow")
		fmt.Println("  [q] Quit")
		fmt.Print("Select: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		var result *repair.Result
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "1":
			result, err = r.DISM(repair.CheckHealth)
		case "2":
			result, err = r.DISM(repair.ScanHealth)
		case "3":
			result, err = r.DISM(repair.RestoreHealth)
		case "4":
			result, err = r.SFC()
		case "q", "quit", "exit":
			return
		default:
			fmt.Println("Invalid selection.")
			continue
		}

		if err != nil {
			logger.Error("Repair run failed: %v", err)
			pause(reader)
			continue
		}
		report(result)
		pause(reader)
	}
}

// report summarizes a finished run for the operator.
func report(result *repair.Result) {
	switch result.Verdict {
	case repair.Healthy:
		logger.Success("%s: no corruption found", result.Tool)
	case repair.Repaired:
		logger.Success("%s: corruption found and repaired", result.Tool)
	case repair.CorruptionFound:
		logger.Warning("%s: corruption found but not repaired; run DISM restore health", result.Tool)
	case repair.Failed:
		logger.Error("%s failed with exit code %d", result.Tool, result.ExitCode)
	}
}

func pause(reader *bufio.Reader) {
	fmt.Print("Press Enter to continue...")
	reader.ReadString('\n')
}

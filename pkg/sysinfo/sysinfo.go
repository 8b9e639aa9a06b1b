// pkg/sysinfo/sysinfo.go - system facts for the interactive status displays.

package sysinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/yusufpapurcu/wmi"
)

// Win32_OperatingSystem is the WMI class projection used for OS facts.
type Win32_OperatingSystem struct {
	Caption                string
	Version                string
	OSArchitecture         string
	FreePhysicalMemory     uint64 // KB
	TotalVisibleMemorySize uint64 // KB
}

// Facts is the collected system state shown by the "Show status" menu
// actions.
type Facts struct {
	Hostname      string
	OSCaption     string
	OSVersion     string
	Architecture  string
	BootTime      time.Time
	Uptime        time.Duration
	FreeMemoryMB  uint64
	TotalMemoryMB uint64
}

// Collect gathers the facts. Individual probes failing degrade the result
// instead of failing it; a status display with gaps beats no display.
func Collect() Facts {
	facts := Facts{}

	if hostname, err := os.Hostname(); err == nil {
		facts.Hostname = hostname
	}

	if bootSec, err := host.BootTime(); err == nil {
		facts.BootTime = time.Unix(int64(bootSec), 0)
	}
	if upSec, err := host.Uptime(); err == nil {
		facts.Uptime = time.Duration(upSec) * time.Second
	}

	var oses []Win32_OperatingSystem
	if err := wmi.Query(wmi.CreateQuery(&oses, ""), &oses); err == nil && len(oses) > 0 {
		facts.OSCaption = oses[0].Caption
		facts.OSVersion = oses[0].Version
		facts.Architecture = oses[0].OSArchitecture
		facts.FreeMemoryMB = oses[0].FreePhysicalMemory / 1024
		facts.TotalMemoryMB = oses[0].TotalVisibleMemorySize / 1024
	}

	return facts
}

// Lines renders the facts as display lines for the console menus.
func (f Facts) Lines() []string {
	lines := []string{
		fmt.Sprintf("Hostname:      %s", f.Hostname),
	}
	if f.OSCaption != "" {
		lines = append(lines, fmt.Sprintf("OS:            %s (%s, %s)", f.OSCaption, f.OSVersion, f.Architecture))
	}
	if !f.BootTime.IsZero() {
		lines = append(lines,
			fmt.Sprintf("Booted:        %s", f.BootTime.Format("2006-01-02 15:04:05")),
			fmt.Sprintf("Uptime:        %s", f.Uptime.Round(time.Minute)))
	}
	if f.TotalMemoryMB > 0 {
		lines = append(lines, fmt.Sprintf("Memory:        %d MB free of %d MB", f.FreeMemoryMB, f.TotalMemoryMB))
	}
	return lines
}

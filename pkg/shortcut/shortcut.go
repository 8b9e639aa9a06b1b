// pkg/shortcut/shortcut.go - Start Menu shortcut creation via WScript.Shell.

package shortcut

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/igpadmins/igptools/pkg/logging"
)

// StartMenuDir is the all-users Start Menu programs folder.
const StartMenuDir = `C:\ProgramData\Microsoft\Windows\Start Menu\Programs`

// Shortcut describes a .lnk file to create.
type Shortcut struct {
	// Name is the display name; ".lnk" is appended automatically.
	Name string
	// Folder is the subfolder under the Start Menu programs directory;
	// empty places the shortcut at the top level.
	Folder       string
	Target       string
	Arguments    string
	WorkingDir   string
	Description  string
	IconLocation string
}

// CreateStartMenu creates (or replaces) the shortcut in the all-users
// Start Menu.
func CreateStartMenu(sc Shortcut) error {
	dir := StartMenuDir
	if sc.Folder != "" {
		dir = filepath.Join(dir, sc.Folder)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create Start Menu folder %s: %w", dir, err)
	}
	linkPath := filepath.Join(dir, sc.Name+".lnk")
	return create(linkPath, sc)
}

// create drives the WScript.Shell automation object to write the .lnk.
func create(linkPath string, sc Shortcut) error {
	if err := ole.CoInitialize(0); err != nil {
		// S_FALSE means COM was already initialized on this thread,
		// which is fine.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != uintptr(1) {
			return fmt.Errorf("failed to initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("failed to create WScript.Shell object: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("failed to query WScript.Shell dispatch: %w", err)
	}
	defer shell.Release()

	linkVariant, err := oleutil.CallMethod(shell, "CreateShortcut", linkPath)
	if err != nil {
		return fmt.Errorf("failed to create shortcut object: %w", err)
	}
	link := linkVariant.ToIDispatch()
	defer link.Release()

	if _, err := oleutil.PutProperty(link, "TargetPath", sc.Target); err != nil {
		return fmt.Errorf("failed to set shortcut target: %w", err)
	}
	if sc.Arguments != "" {
		if _, err := oleutil.PutProperty(link, "Arguments", sc.Arguments); err != nil {
			return fmt.Errorf("failed to set shortcut arguments: %w", err)
		}
	}
	if sc.WorkingDir != "" {
		if _, err := oleutil.PutProperty(link, "WorkingDirectory", sc.WorkingDir); err != nil {
			return fmt.Errorf("failed to set shortcut working directory: %w", err)
		}
	}
	if sc.Description != "" {
		if _, err := oleutil.PutProperty(link, "Description", sc.Description); err != nil {
			return fmt.Errorf("failed to set shortcut description: %w", err)
		}
	}
	if sc.IconLocation != "" {
		if _, err := oleutil.PutProperty(link, "IconLocation", sc.IconLocation); err != nil {
			return fmt.Errorf("failed to set shortcut icon: %w", err)
		}
	}

	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return fmt.Errorf("failed to save shortcut %s: %w", linkPath, err)
	}

	logging.Info("Shortcut created", "path", linkPath, "target", sc.Target)
	return nil
}

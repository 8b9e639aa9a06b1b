// pkg/schtask/xml.go - Task Scheduler XML generation.
//
// SCHTASKS.EXE /Create flags cannot express everything a definition needs
// (run-as identity, execution time limit, boot delay) in one consistent way,
// so tasks are registered from a generated Task Scheduler XML document via
// /Create /XML instead.

package schtask

import (
	"encoding/xml"
	"fmt"
	"time"
)

const taskXMLHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// SYSTEM's well-known SID; the scheduler accepts either the SID or the name,
// the SID is locale-independent.
const systemSID = "S-1-5-18"

type taskXML struct {
	XMLName          xml.Name         `xml:"Task"`
	Version          string           `xml:"version,attr"`
	Xmlns            string           `xml:"xmlns,attr"`
	RegistrationInfo registrationInfo `xml:"RegistrationInfo"`
	Triggers         triggers         `xml:"Triggers"`
	Principals       principals       `xml:"Principals"`
	Settings         taskSettings     `xml:"Settings"`
	Actions          actions          `xml:"Actions"`
}

type registrationInfo struct {
	Description string `xml:"Description,omitempty"`
}

type triggers struct {
	Boot     *bootTrigger     `xml:"BootTrigger,omitempty"`
	Calendar *calendarTrigger `xml:"CalendarTrigger,omitempty"`
}

type bootTrigger struct {
	Enabled bool   `xml:"Enabled"`
	Delay   string `xml:"Delay,omitempty"`
}

type calendarTrigger struct {
	StartBoundary string        `xml:"StartBoundary"`
	Enabled       bool          `xml:"Enabled"`
	ScheduleByDay scheduleByDay `xml:"ScheduleByDay"`
}

type scheduleByDay struct {
	DaysInterval int `xml:"DaysInterval"`
}

type principals struct {
	Principal principal `xml:"Principal"`
}

type principal struct {
	ID       string `xml:"id,attr"`
	UserID   string `xml:"UserId"`
	RunLevel string `xml:"RunLevel"`
}

type taskSettings struct {
	MultipleInstancesPolicy    string `xml:"MultipleInstancesPolicy"`
	DisallowStartIfOnBatteries bool   `xml:"DisallowStartIfOnBatteries"`
	StopIfGoingOnBatteries     bool   `xml:"StopIfGoingOnBatteries"`
	AllowStartOnDemand         bool   `xml:"AllowStartOnDemand"`
	StartWhenAvailable         bool   `xml:"StartWhenAvailable"`
	Enabled                    bool   `xml:"Enabled"`
	ExecutionTimeLimit         string `xml:"ExecutionTimeLimit"`
}

type actions struct {
	Context string     `xml:"Context,attr"`
	Exec    execAction `xml:"Exec"`
}

type execAction struct {
	Command   string `xml:"Command"`
	Arguments string `xml:"Arguments,omitempty"`
}

// buildTaskXML renders a Definition as a Task Scheduler 1.2 document.
func buildTaskXML(def Definition) ([]byte, error) {
	doc := taskXML{
		Version: "1.2",
		Xmlns:   "http://schemas.microsoft.com/windows/2004/02/mit/task",
		RegistrationInfo: registrationInfo{
			Description: def.Description,
		},
		Principals: principals{
			Principal: principal{
				ID:       "Author",
				UserID:   principalUserID(def.RunAs),
				RunLevel: "HighestAvailable",
			},
		},
		Settings: taskSettings{
			MultipleInstancesPolicy:    "IgnoreNew",
			DisallowStartIfOnBatteries: false,
			StopIfGoingOnBatteries:     false,
			AllowStartOnDemand:         true,
			StartWhenAvailable:         true,
			Enabled:                    true,
			ExecutionTimeLimit:         isoDuration(def.TimeLimit),
		},
		Actions: actions{
			Context: "Author",
			Exec: execAction{
				Command:   def.Command,
				Arguments: def.Arguments,
			},
		},
	}

	switch def.Trigger.Kind {
	case AtStartup:
		doc.Triggers.Boot = &bootTrigger{
			Enabled: true,
			// Give the network stack a moment after boot before the
			// sync fires.
			Delay: "PT30S",
		}
	case DailyAt:
		doc.Triggers.Calendar = &calendarTrigger{
			// The scheduler only reads the time-of-day portion for a
			// daily schedule; the date just has to be in the past.
			StartBoundary: "2020-01-01T" + def.Trigger.At + ":00",
			Enabled:       true,
			ScheduleByDay: scheduleByDay{DaysInterval: 1},
		}
	default:
		return nil, fmt.Errorf("unsupported trigger kind: %d", def.Trigger.Kind)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task XML: %w", err)
	}
	return append([]byte(taskXMLHeader), body...), nil
}

// principalUserID maps a run-as identity to the form the scheduler expects.
func principalUserID(runAs string) string {
	if runAs == "" || runAs == "SYSTEM" || runAs == `NT AUTHORITY\SYSTEM` {
		return systemSID
	}
	return runAs
}

// isoDuration formats a duration as the ISO 8601 subset Task Scheduler
// accepts. Zero means no limit, which the scheduler spells PT0S.
func isoDuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("PT%dH", int(d.Hours()))
	}
	return fmt.Sprintf("PT%dM", int(d.Minutes()))
}

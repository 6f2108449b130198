package core

import (
	"fmt"
	"strings"
	"time"
)

// Severity tags a log entry for colouring.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity accepts a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return sev, nil
	case "":
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// SeverityFor returns the log severity used when a step with kind starts.
func SeverityFor(kind PacketKind) Severity {
	if kind == PacketError {
		return SeverityError
	}
	return SeverityInfo
}

// LogTimeLayout is the console timestamp format (24h, seconds precision).
const LogTimeLayout = "15:04:05"

// LogEntry is one line of the log console. Entries are append-only.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// Clock returns the console timestamp of the entry.
func (e LogEntry) Clock() string {
	return e.Timestamp.Format(LogTimeLayout)
}

// String renders the entry as a console line.
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Clock(), e.Message)
}

// FlashKind is the transient highlight applied to a node.
type FlashKind string

const (
	FlashNone    FlashKind = ""
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashProcess FlashKind = "process"
)

// ParseFlashKind accepts a flash name case-insensitively.
func ParseFlashKind(s string) (FlashKind, error) {
	switch k := FlashKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FlashSuccess, FlashError, FlashProcess:
		return k, nil
	default:
		return FlashNone, fmt.Errorf("unknown flash kind %q", s)
	}
}

// Flash is an active node highlight; it is swept once ExpiresAt passes.
type Flash struct {
	Node      NodeID    `json:"node"`
	Kind      FlashKind `json:"kind"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Active reports whether the flash is still visible at now.
func (f Flash) Active(now time.Time) bool {
	return f.Kind != FlashNone && now.Before(f.ExpiresAt)
}

package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Job status constants.
const (
	StatusCreated        = "created"
	StatusWorkspaceReady = "workspace_ready"
	StatusConverting     = "converting"
	StatusSucceeded      = "succeeded"
	StatusFailed         = "failed"
	StatusTimedOut       = "timed_out"
)

// supportedExtensions is the set of input formats the conversion engine
// accepts. Lowercase, with the leading dot.
var supportedExtensions = map[string]bool{
	".docx": true,
	".pptx": true,
	".odt":  true,
	".odp":  true,
	".doc":  true,
	".ppt":  true,
	".rtf":  true,
	".txt":  true,
}

// SupportedExtension reports whether ext (case-insensitive, with or without
// a leading dot) is a convertible input format.
func SupportedExtension(ext string) bool {
	e := strings.ToLower(ext)
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return supportedExtensions[e]
}

// SupportedExtensions returns the supported input extensions in a stable
// order, for error messages and API responses.
func SupportedExtensions() []string {
	return []string{".doc", ".docx", ".odp", ".odt", ".ppt", ".pptx", ".rtf", ".txt"}
}

// Stem returns filename without its directory or extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputName returns the caller-visible name of the produced PDF: the input
// filename's stem plus ".pdf".
func OutputName(filename string) string {
	return Stem(filename) + ".pdf"
}

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusCreated: {
		StatusWorkspaceReady: true,
		StatusFailed:         true,
	},
	StatusWorkspaceReady: {
		StatusConverting: true,
		StatusFailed:     true,
		// A job can time out while queued for a conversion slot.
		StatusTimedOut: true,
	},
	StatusConverting: {
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether a status is a terminal job outcome.
func Terminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Job is the persisted record of one document-to-PDF conversion. The live
// filesystem workspace is owned by the coordinator for the job's duration;
// only this metadata outlives it.
type Job struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	Extension  string     `json:"extension"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	OutputName string     `json:"output_name,omitempty"`
	OutputSize *int64     `json:"output_size,omitempty"`
	DurationMS *int       `json:"duration_ms,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType tags a detected integrity-rule breach.
type ViolationType string

const (
	ViolationTabSwitch      ViolationType = "TAB_SWITCH"
	ViolationCopyAttempt    ViolationType = "COPY_ATTEMPT"
	ViolationPasteAttempt   ViolationType = "PASTE_ATTEMPT"
	ViolationFullscreenExit ViolationType = "FULLSCREEN_EXIT"
	ViolationIPChange       ViolationType = "IP_CHANGE"
	ViolationBrowserChange  ViolationType = "BROWSER_CHANGE"
	ViolationDevTools       ViolationType = "DEVTOOLS_OPEN"
)

var knownViolationTypes = map[ViolationType]struct{}{
	ViolationTabSwitch:      {},
	ViolationCopyAttempt:    {},
	ViolationPasteAttempt:   {},
	ViolationFullscreenExit: {},
	ViolationIPChange:       {},
	ViolationBrowserChange:  {},
	ViolationDevTools:       {},
}

// IsKnown reports whether the type is one the tracker recognizes.
// Unknown client-reported types are still recorded, just flagged.
func (t ViolationType) IsKnown() bool {
	_, ok := knownViolationTypes[t]
	return ok
}

// Violation is an append-only integrity event attached to a session.
type Violation struct {
	ID         uuid.UUID     `json:"id"`
	SessionID  uuid.UUID     `json:"session_id"`
	Type       ViolationType `json:"type"`
	Detail     string        `json:"detail,omitempty"`
	IPAddress  string        `json:"ip_address"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ReportViolationRequest is the client payload for reporting a violation.
type ReportViolationRequest struct {
	Type   ViolationType `json:"type" binding:"required,max=40"`
	Detail string        `json:"detail" binding:"max=1000"`
}

// ViolationReceipt is returned to the client after a violation is recorded.
type ViolationReceipt struct {
	ViolationCount int  `json:"violation_count"`
	WarningIssued  bool `json:"warning_issued"`
	Terminated     bool `json:"terminated"`
}

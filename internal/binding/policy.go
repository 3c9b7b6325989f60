// Package binding decides how strictly an attempt is tied to the client that
// created it. The checks are injectable so different exams can choose
// stricter or looser binding without branching in the validate path.
package binding

import "github.com/invigilo/invigilo-backend/internal/model"

// Verdict is the outcome of checking presented client identity against the
// identity bound at session creation.
type Verdict struct {
	// Allow is false when the mismatch is a hard denial.
	Allow bool
	// Violation is recorded when non-empty, whether or not access is allowed.
	Violation model.ViolationType
	// RebindIP is true when the stored IP should be updated to the presented one.
	RebindIP bool
}

// Policy evaluates the presented IP and device fingerprint against the ones
// bound to the session.
type Policy interface {
	Check(stored, presented Identity) Verdict
}

// Identity is the client-identifying pair bound to a session.
type Identity struct {
	IP          string
	Fingerprint string
}

// DefaultPolicy treats the two signals asymmetrically on purpose: IP churn is
// common for legitimate reasons (mobile networks, VPN rotation) and must not
// block a student, so an IP change is logged as a soft violation and the
// stored IP is updated. A device fingerprint change is a far stronger
// hijack/impersonation signal and denies access outright.
type DefaultPolicy struct{}

func (DefaultPolicy) Check(stored, presented Identity) Verdict {
	if stored.Fingerprint != presented.Fingerprint {
		return Verdict{Allow: false, Violation: model.ViolationBrowserChange}
	}
	if stored.IP != presented.IP {
		return Verdict{Allow: true, Violation: model.ViolationIPChange, RebindIP: true}
	}
	return Verdict{Allow: true}
}

// StrictPolicy denies on any identity drift. Intended for high-stakes exams
// run in controlled labs where the network is stable.
type StrictPolicy struct{}

func (StrictPolicy) Check(stored, presented Identity) Verdict {
	if stored.Fingerprint != presented.Fingerprint {
		return Verdict{Allow: false, Violation: model.ViolationBrowserChange}
	}
	if stored.IP != presented.IP {
		return Verdict{Allow: false, Violation: model.ViolationIPChange}
	}
	return Verdict{Allow: true}
}

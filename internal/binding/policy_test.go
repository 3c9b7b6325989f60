package binding

import (
	"testing"

	"github.com/invigilo/invigilo-backend/internal/model"
)

func TestDefaultPolicy(t *testing.T) {
	stored := Identity{IP: "10.0.0.1", Fingerprint: "fp-aaaa"}

	tests := []struct {
		name      string
		presented Identity
		allow     bool
		violation model.ViolationType
		rebindIP  bool
	}{
		{"same identity", Identity{IP: "10.0.0.1", Fingerprint: "fp-aaaa"}, true, "", false},
		{"ip change is soft and rebinds", Identity{IP: "10.0.0.2", Fingerprint: "fp-aaaa"}, true, model.ViolationIPChange, true},
		{"fingerprint change is a hard deny", Identity{IP: "10.0.0.1", Fingerprint: "fp-bbbb"}, false, model.ViolationBrowserChange, false},
		{"fingerprint check wins over ip", Identity{IP: "10.0.0.2", Fingerprint: "fp-bbbb"}, false, model.ViolationBrowserChange, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DefaultPolicy{}.Check(stored, tt.presented)
			if v.Allow != tt.allow || v.Violation != tt.violation || v.RebindIP != tt.rebindIP {
				t.Errorf("got %+v, want allow=%v violation=%q rebind=%v", v, tt.allow, tt.violation, tt.rebindIP)
			}
		})
	}
}

func TestStrictPolicyDeniesIPDrift(t *testing.T) {
	stored := Identity{IP: "10.0.0.1", Fingerprint: "fp-aaaa"}
	v := StrictPolicy{}.Check(stored, Identity{IP: "10.0.0.9", Fingerprint: "fp-aaaa"})
	if v.Allow {
		t.Fatal("strict policy allowed an IP change")
	}
	if v.Violation != model.ViolationIPChange {
		t.Fatalf("got violation %q, want %q", v.Violation, model.ViolationIPChange)
	}
}

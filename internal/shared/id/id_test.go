package id

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		s := gen.GenerateString()
		if seen[s] {
			t.Fatalf("duplicate ULID generated: %s", s)
		}
		seen[s] = true
	}
}

func TestPrefixedIDs(t *testing.T) {
	req := NewRequestID()
	if !strings.HasPrefix(req.String(), RequestPrefix+"_") {
		t.Errorf("request ID missing prefix: %s", req)
	}
	if _, err := ulid.Parse(strings.TrimPrefix(req.String(), RequestPrefix+"_")); err != nil {
		t.Errorf("request ID not a valid ULID: %s", req)
	}

	ntf := NewNotificationID()
	if !strings.HasPrefix(ntf.String(), NotificationPrefix+"_") {
		t.Errorf("notification ID missing prefix: %s", ntf)
	}
}

func TestDefaultSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Default must return the same generator")
	}
}

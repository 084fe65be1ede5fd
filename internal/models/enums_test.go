package models

import "testing"

func TestParsePriority(t *testing.T) {
	cases := map[string]Priority{
		"low":    PriorityLow,
		"High":   PriorityHigh,
		" HIGH ": PriorityHigh,
		"urgent": PriorityUrgent,
		"medium": PriorityNormal,
		"":       PriorityUnset,
		"weird":  PriorityUnset,
	}
	for in, want := range cases {
		if got := ParsePriority(in); got != want {
			t.Fatalf("ParsePriority(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTicketStatusActive(t *testing.T) {
	if !ParseTicketStatus("open").Active() {
		t.Fatalf("open should be active")
	}
	if !ParseTicketStatus("in_progress").Active() {
		t.Fatalf("in_progress should be active")
	}
	if ParseTicketStatus("closed").Active() {
		t.Fatalf("closed should not be active")
	}
	if StatusUnknown.Active() {
		t.Fatalf("unknown should not be active")
	}
}

func TestRoleAgent(t *testing.T) {
	if ParseRole("customer").Agent() {
		t.Fatalf("customer is not an agent")
	}
	if !ParseRole("employee").Agent() {
		t.Fatalf("employee is an agent")
	}
	if !ParseRole("Administrator").Agent() {
		t.Fatalf("administrator is an agent")
	}
}

func TestEnumRoundTrip(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if ParsePriority(p.String()) != p {
			t.Fatalf("priority %v did not round-trip", p)
		}
	}
	for _, s := range []TicketStatus{StatusOpen, StatusInProgress, StatusClosed} {
		if ParseTicketStatus(s.String()) != s {
			t.Fatalf("status %v did not round-trip", s)
		}
	}
}

package domain

import "testing"

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	all := []RequestStatus{
		StatusPending, StatusProcessing, StatusFulfilled, StatusRejected, StatusCancelled,
	}

	allowed := map[RequestStatus][]RequestStatus{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusFulfilled, StatusRejected, StatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRequestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status RequestStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusFulfilled, true},
		{StatusRejected, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	all := []RequestStatus{
		StatusPending, StatusProcessing, StatusFulfilled, StatusRejected, StatusCancelled,
	}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Errorf("terminal status %s has outgoing edge to %s", from, to)
			}
		}
	}
}

func TestPriority_IsValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.IsValid() {
			t.Errorf("Priority %q should be valid", p)
		}
	}
	if Priority("vip").IsValid() {
		t.Error(`Priority "vip" should be invalid`)
	}
}

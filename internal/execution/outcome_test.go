package execution

import "testing"

func TestOutcomeTerminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusConfirmed, true},
		{StatusFailed, true},
		{StatusTimedOut, true},
	}
	for _, tc := range cases {
		o := Outcome{Status: tc.status}
		if o.Terminal() != tc.want {
			t.Fatalf("Terminal(%s) = %v, want %v", tc.status, o.Terminal(), tc.want)
		}
	}
}

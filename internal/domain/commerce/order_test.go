package commerce

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusProcessing, OrderStatusQualityCheck, true},
		{OrderStatusProcessing, OrderStatusAdminReview, true},
		{OrderStatusProcessing, OrderStatusFailed, true},
		{OrderStatusQualityCheck, OrderStatusAdminReview, true},
		{OrderStatusAdminReview, OrderStatusCompleted, true},
		{OrderStatusAdminReview, OrderStatusFailed, true},
		{OrderStatusFailed, OrderStatusRefunded, true},
		{OrderStatusCompleted, OrderStatusRefunded, true},

		// no going backwards
		{OrderStatusQualityCheck, OrderStatusProcessing, false},
		{OrderStatusAdminReview, OrderStatusQualityCheck, false},
		{OrderStatusCompleted, OrderStatusAdminReview, false},
		{OrderStatusRefunded, OrderStatusProcessing, false},

		// a completed placement cannot fail, and terminal states are terminal
		{OrderStatusCompleted, OrderStatusFailed, false},
		{OrderStatusFailed, OrderStatusCompleted, false},
		{OrderStatusRefunded, OrderStatusCompleted, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},

		// unknown statuses never pass
		{"shipped", OrderStatusCompleted, false},
		{OrderStatusProcessing, "shipped", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

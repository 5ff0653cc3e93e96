package domain_test

import (
	"fmt"
	"testing"

	"github.com/tribunapp/prediction/internal/domain"
)

// The HTTP layers map errors to status codes through these predicates, so a
// sentinel landing in the wrong bucket surfaces as the wrong status code.
func TestErrorClassification(t *testing.T) {
	conflicts := []error{
		domain.ErrAlreadyPredicted,
		domain.ErrAlreadySettled,
		domain.ErrMatchNotOpen,
		domain.ErrMatchStillOpen,
	}
	for _, err := range conflicts {
		if !domain.IsConflict(err) {
			t.Errorf("IsConflict(%v) = false, want true", err)
		}
		if domain.IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = true, want false", err)
		}
	}

	notFound := []error{
		domain.ErrMatchNotFound,
		domain.ErrPredictionNotFound,
		domain.ErrUserNotFound,
	}
	for _, err := range notFound {
		if !domain.IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = false, want true", err)
		}
		if domain.IsConflict(err) {
			t.Errorf("IsConflict(%v) = true, want false", err)
		}
	}

	// Wrapped sentinels must still classify.
	wrapped := fmt.Errorf("settlement_service.SettleMatch: %w", domain.ErrMatchStillOpen)
	if !domain.IsConflict(wrapped) {
		t.Errorf("IsConflict(wrapped) = false, want true")
	}
}

package booking

import (
	"context"
	"log"

	"github.com/civicworks/facility-reservation/internal/model"
)

// Evaluator decides at submission time whether a request may bypass
// manual staff review.  It is always a boolean decision and defaults
// to false on missing or unknown data; it never surfaces an error.
type Evaluator struct {
	verifier IdentityVerifier
}

// NewEvaluator builds an Evaluator over the identity-verification flag.
func NewEvaluator(verifier IdentityVerifier) *Evaluator {
	return &Evaluator{verifier: verifier}
}

// Eligible returns true iff all four conditions hold: the facility has
// auto-approval enabled, the submitting user's identity is verified,
// the conflict detector reported no conflict and the policy engine
// reported no violation.  The conflict and policy results are passed
// in because the submission flow has already computed them.
func (e *Evaluator) Eligible(ctx context.Context, fac model.Facility, userID uint64, conflict ConflictResult, policyErr error) bool {
	if !fac.AutoApprovalEnabled {
		return false
	}
	if conflict.HasConflict || policyErr != nil {
		return false
	}
	if e.verifier == nil {
		return false
	}
	verified, err := e.verifier.IsUserVerified(ctx, userID)
	if err != nil {
		log.Printf("auto-approval: verify user %d failed, falling back to manual review: %v", userID, err)
		return false
	}
	return verified
}

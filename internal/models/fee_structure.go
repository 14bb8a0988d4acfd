package models

// FallbackPlanName is displayed when a ledger's selectedPlanId cannot be
// resolved against the batch fee structure.
const FallbackPlanName = "Assigned Plan"

// FeePlan is a named plan inside a batch fee structure
type FeePlan struct {
	ID               string  `firestore:"id" json:"id"`
	Name             string  `firestore:"name" json:"name"`
	InstallmentCount int     `firestore:"installmentCount" json:"installmentCount"`
	TotalAmount      float64 `firestore:"totalAmount" json:"totalAmount"`
}

// FeeStructure is the shared per-batch plan catalog
// (feeStructures/{batchId}). It is only consulted to resolve a
// human-readable plan name; installment amounts are never validated
// against it.
type FeeStructure struct {
	BatchID string    `firestore:"-" json:"batchId"`
	Plans   []FeePlan `firestore:"plans" json:"plans"`
}

// PlanName resolves planID to its display name, falling back to
// FallbackPlanName when the structure has no matching plan.
func (s *FeeStructure) PlanName(planID string) string {
	if s == nil {
		return FallbackPlanName
	}
	for _, p := range s.Plans {
		if p.ID == planID {
			return p.Name
		}
	}
	return FallbackPlanName
}

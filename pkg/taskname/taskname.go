package taskname

const (
	// Brand tasks
	BrandProvisioning = "brand:provisioning"

	// Scoring tasks
	ScoringEvent = "scoring:event"

	// Membership tasks
	MembershipRebuildCache = "membership:rebuild:cache"

	// Reconciliation tasks
	ReconcileBrand  = "reconcile:brand"
	ReconcileLedger = "reconcile:ledger"
)

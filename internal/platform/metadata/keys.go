package metadata

// --- SQLite Keys ---
// These keys are used for the 'key' column in the 'metadata' SQLite table.
const (
	// SubmissionsOpenKey stores whether raffle entry submission is currently
	// open ("true"/"false"). Toggled by the admin surface, read by the entry
	// eligibility check.
	SubmissionsOpenKey = "submissions_open"

	// LastRecomputeAtKey stores the RFC3339 timestamp of the last completed
	// run of the background weight recompute job.
	LastRecomputeAtKey = "last_recompute_at"
)

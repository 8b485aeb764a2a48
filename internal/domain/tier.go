package domain

import "strings"

// TierClassification buckets provider tier labels for display and sorting.
func TierClassification(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "":
		return "Unknown"
	case "free", "trial", "starter":
		return "Free"
	case "pro", "plus", "premium":
		return "Pro"
	case "team", "business", "enterprise":
		return "Business"
	default:
		return "Other"
	}
}

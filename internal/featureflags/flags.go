package featureflags

import (
	"os"
	"strings"
)

// Plan is a subscription tier. It is always passed in by the caller.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Feature names a plan-gated capability
type Feature string

const (
	DirectorySync Feature = "directory_sync"
	VendorSync    Feature = "vendor_sync"
	PhotoSync     Feature = "photo_sync"
)

var planFeatures = map[Plan][]Feature{
	PlanFree:       {},
	PlanPro:        {VendorSync},
	PlanEnterprise: {DirectorySync, VendorSync, PhotoSync},
}

// ParsePlan normalizes a plan name. Unknown values resolve to free.
func ParsePlan(s string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planFeatures[p]; ok {
		return p
	}
	return PlanFree
}

// Resolve reports whether plan includes feature. An env override
// FLAG_<FEATURE>=true forces a feature on regardless of plan.
func Resolve(plan Plan, feature Feature) bool {
	if Enabled(string(feature)) {
		return true
	}
	for _, f := range planFeatures[plan] {
		if f == feature {
			return true
		}
	}
	return false
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

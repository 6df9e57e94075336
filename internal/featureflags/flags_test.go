package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveByPlan(t *testing.T) {
	assert.True(t, Resolve(PlanEnterprise, DirectorySync))
	assert.True(t, Resolve(PlanEnterprise, VendorSync))
	assert.True(t, Resolve(PlanPro, VendorSync))
	assert.False(t, Resolve(PlanPro, DirectorySync))
	assert.False(t, Resolve(PlanFree, VendorSync))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FLAG_DIRECTORY_SYNC", "yes")
	assert.True(t, Resolve(PlanFree, DirectorySync))
	assert.False(t, Resolve(PlanFree, VendorSync))
}

func TestParsePlan(t *testing.T) {
	assert.Equal(t, PlanPro, ParsePlan(" Pro "))
	assert.Equal(t, PlanFree, ParsePlan("platinum"))
	assert.Equal(t, PlanFree, ParsePlan(""))
}

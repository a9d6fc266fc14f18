package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectRoles(t *testing.T) {
	tests := []struct {
		name         string
		requirements []string
		expected     []string
	}{
		{
			name:         "baseline only",
			requirements: []string{"Users can upload CSV files", "Admins can view upload history"},
			expected:     []string{RoleBackend, RoleFrontend, RoleIntegrator},
		},
		{
			name:         "empty requirements",
			requirements: nil,
			expected:     []string{RoleBackend, RoleFrontend, RoleIntegrator},
		},
		{
			name: "several keyword sets",
			requirements: []string{
				"Store orders in a PostgreSQL database",
				"Deploy on Kubernetes with strict Security reviews",
				"Recommend products with machine learning",
			},
			expected: []string{
				RoleBackend, RoleFrontend,
				"Database Architect", "Security Specialist", "DevOps Engineer", "Machine Learning Engineer",
				RoleIntegrator,
			},
		},
		{
			name:         "keyword repeated across requirements adds role once",
			requirements: []string{"mobile app", "mobile notifications", "Android widget"},
			expected:     []string{RoleBackend, RoleFrontend, "Mobile Developer", RoleIntegrator},
		},
		{
			name:         "short keywords need word boundaries",
			requirements: []string{"Email campaigns for retail customers", "HTML templates"},
			expected:     []string{RoleBackend, RoleFrontend, RoleIntegrator},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectRoles(tt.requirements))
		})
	}
}

func TestSelectRoles_Deterministic(t *testing.T) {
	reqs := []string{"A blockchain ledger with AI fraud detection", "UX research", "aws lambda"}

	first := SelectRoles(reqs)
	second := SelectRoles(reqs)
	assert.Equal(t, first, second)
	assert.Equal(t, RoleIntegrator, first[len(first)-1])

	seen := make(map[string]bool)
	for _, r := range first {
		assert.False(t, seen[r], "duplicate role %s", r)
		seen[r] = true
	}
}

func TestSpecialistRoles(t *testing.T) {
	roles := []string{RoleBackend, RoleFrontend, RoleBackend, RoleIntegrator}
	assert.Equal(t, []string{RoleBackend, RoleFrontend}, SpecialistRoles(roles))
}

package orchestration

import (
	"regexp"
	"strings"
)

// Baseline and integrator roles.
const (
	RoleBackend    = "Backend Developer"
	RoleFrontend   = "Frontend Developer"
	RoleIntegrator = "Chief Technology Officer"
)

type roleRule struct {
	role    string
	pattern *regexp.Regexp
}

func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

// roleRules are checked in order; each hit appends its role once.
var roleRules = []roleRule{
	{"Database Architect", keywords("database", "databases", "sql", "postgres", "postgresql", "mysql", "mongodb", "schema", "data model")},
	{"Security Specialist", keywords("security", "secure", "authentication", "authorization", "encryption", "permissions", "compliance", "gdpr")},
	{"DevOps Engineer", keywords("devops", "kubernetes", "k8s", "docker", "ci/cd", "deployment", "monitoring")},
	{"Mobile Developer", keywords("mobile", "ios", "android", "react native", "flutter")},
	{"Blockchain Developer", keywords("blockchain", "smart contract", "smart contracts", "web3", "ethereum", "solidity")},
	{"Machine Learning Engineer", keywords("machine learning", "ml", "ai", "model training", "recommendation", "recommendations", "prediction")},
	{"UX Designer", keywords("ux", "user experience", "accessibility", "wireframe", "wireframes")},
	{"QA Engineer", keywords("qa", "testing", "test coverage", "quality assurance")},
	{"Data Engineer", keywords("etl", "data pipeline", "data warehouse", "analytics", "streaming")},
	{"Cloud Architect", keywords("cloud", "aws", "gcp", "azure", "serverless", "infrastructure")},
}

// SelectRoles maps requirements to specialist roles. The two baseline roles
// come first and the integrator role is always last.
func SelectRoles(requirements []string) []string {
	text := strings.ToLower(strings.Join(requirements, "\n"))

	roles := []string{RoleBackend, RoleFrontend}
	for _, rule := range roleRules {
		if rule.pattern.MatchString(text) {
			roles = append(roles, rule.role)
		}
	}
	return append(roles, RoleIntegrator)
}

// SpecialistRoles drops the integrator from a role list.
func SpecialistRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r == RoleIntegrator || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

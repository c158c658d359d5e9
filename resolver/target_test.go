package resolver

import (
	"testing"
)

func AssertEquals(t *testing.T, expected interface{}, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected: %v, actual: %v", expected, actual)
	}
}

func TestParseTarget_organization(t *testing.T) {
	target := ParseTarget("org1.svc.net:8080")
	AssertEquals(t, "tasks.svc", target.Host)
	AssertEquals(t, 8080, target.Port)
	AssertEquals(t, "org1", target.Organization)
	AssertEquals(t, "tasks.svc:8080", target.Address())
}

func TestParseTarget_literal(t *testing.T) {
	target := ParseTarget("10.0.0.5:80")
	AssertEquals(t, "10.0.0.5", target.Host)
	AssertEquals(t, 80, target.Port)
	AssertEquals(t, "", target.Organization)
}

func TestParseTarget_tasksPrefix(t *testing.T) {
	// already in swarm DNS form, used as-is
	target := ParseTarget("tasks.api:9000")
	AssertEquals(t, "tasks.api", target.Host)
	AssertEquals(t, 9000, target.Port)
	AssertEquals(t, "", target.Organization)
}

func TestParseTarget_serviceNetwork(t *testing.T) {
	target := ParseTarget("api.backend")
	AssertEquals(t, "tasks.api", target.Host)
	AssertEquals(t, 80, target.Port)
	AssertEquals(t, "", target.Organization)
}

func TestParseTarget_defaultPort(t *testing.T) {
	// missing port
	target := ParseTarget("org1.svc.net")
	AssertEquals(t, "tasks.svc", target.Host)
	AssertEquals(t, 80, target.Port)

	// unparsable port
	target = ParseTarget("org1.svc.net:http")
	AssertEquals(t, 80, target.Port)
}

func TestParseTarget_numericFirstLabel(t *testing.T) {
	// dotted quads must never be mistaken for an organization scope
	target := ParseTarget("10.0.0.5")
	AssertEquals(t, "10.0.0.5", target.Host)
	AssertEquals(t, "", target.Organization)
}

func TestIsSwarmService(t *testing.T) {
	AssertEquals(t, true, IsSwarmService("tasks.api:80"))
	AssertEquals(t, true, IsSwarmService("org1.svc.net:8080"))
	AssertEquals(t, false, IsSwarmService("localhost:8080"))
	AssertEquals(t, false, IsSwarmService("10.0.0.5:80"))
}

func TestCleanAddress(t *testing.T) {
	AssertEquals(t, "10.0.0.5:80", CleanAddress("10.0.0.5:80, "))
	AssertEquals(t, "10.0.0.5:80", CleanAddress("10.0.0.5;"))
	AssertEquals(t, "backend:8080", CleanAddress("backend:8080"))
}

func TestValidateTenantAccess(t *testing.T) {
	AssertEquals(t, true, ValidateTenantAccess("tasks.svc", "org1"))
	AssertEquals(t, true, ValidateTenantAccess("org1-api.internal", "org1"))
	AssertEquals(t, false, ValidateTenantAccess("other.internal", "org1"))
	AssertEquals(t, false, ValidateTenantAccess("tasks.svc", ""))
}

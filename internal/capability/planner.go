// Package capability validates an environment's declared capability set and
// derives the ordered module plan the IaC engine deploys from.
package capability

import (
	"fmt"
	"strings"

	"github.com/appforge/appforge/internal/interfaces"
)

// canonicalOrder fixes the module sequence regardless of declaration order.
// Repeated planning over the same capability set must yield an identical
// sequence so generated IaC diffs stay reproducible.
var canonicalOrder = []interfaces.Capability{
	interfaces.CapabilityAppRuntime,
	interfaces.CapabilityEnvConfig,
	interfaces.CapabilityPostgres,
	interfaces.CapabilityDNS,
}

// moduleIDs maps each capability to its deployable module
var moduleIDs = map[interfaces.Capability]string{
	interfaces.CapabilityAppRuntime: "app-runtime",
	interfaces.CapabilityEnvConfig:  "env-config",
	interfaces.CapabilityPostgres:   "postgres",
	interfaces.CapabilityDNS:        "dns",
}

// PlanModules validates cross-capability dependencies and returns the planned
// modules in canonical order. Violations fail fast with a message naming the
// missing dependency.
func PlanModules(capabilities []interfaces.Capability, constraints map[string]string) ([]interfaces.PlannedModule, error) {
	declared := make(map[interfaces.Capability]bool, len(capabilities))
	for _, c := range capabilities {
		if _, known := moduleIDs[c]; !known {
			return nil, fmt.Errorf("unknown capability %q (supported: %s)", c, supportedCapabilities())
		}
		declared[c] = true
	}

	if declared[interfaces.CapabilityPostgres] && !declared[interfaces.CapabilityAppRuntime] {
		return nil, fmt.Errorf("capability %q requires capability %q to be declared",
			interfaces.CapabilityPostgres, interfaces.CapabilityAppRuntime)
	}
	if declared[interfaces.CapabilityDNS] {
		if !declared[interfaces.CapabilityAppRuntime] {
			return nil, fmt.Errorf("capability %q requires capability %q to be declared",
				interfaces.CapabilityDNS, interfaces.CapabilityAppRuntime)
		}
		if strings.TrimSpace(constraints["domain"]) == "" {
			return nil, fmt.Errorf("capability %q requires a non-empty %q constraint",
				interfaces.CapabilityDNS, "domain")
		}
	}

	modules := make([]interfaces.PlannedModule, 0, len(declared))
	for _, c := range canonicalOrder {
		if !declared[c] {
			continue
		}
		modules = append(modules, interfaces.PlannedModule{
			Capability:  c,
			ModuleID:    moduleIDs[c],
			Constraints: moduleConstraints(c, constraints),
		})
	}
	return modules, nil
}

// moduleConstraints selects the constraint keys relevant to a module
func moduleConstraints(c interfaces.Capability, constraints map[string]string) map[string]string {
	if c != interfaces.CapabilityDNS {
		return nil
	}
	return map[string]string{"domain": constraints["domain"]}
}

func supportedCapabilities() string {
	names := make([]string, len(canonicalOrder))
	for i, c := range canonicalOrder {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

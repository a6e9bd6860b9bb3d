package capability

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/appforge/appforge/internal/interfaces"
)

// ResolveOutputs cross-checks an environment's declared output keys against the
// provider outputs reported by the IaC engine and the template defaults.
// Unknown provider keys fail fast, as does a required output missing from both
// sources. Each resolved value is type-checked against its declared type and
// tagged with provenance.
func ResolveOutputs(declared []interfaces.DeclaredOutput, providerOutputs map[string]interface{}) ([]*interfaces.ResolvedOutput, error) {
	byKey := make(map[string]interfaces.DeclaredOutput, len(declared))
	for _, d := range declared {
		byKey[d.Key] = d
	}

	for key := range providerOutputs {
		if _, ok := byKey[key]; !ok {
			return nil, fmt.Errorf("engine reported unknown output %q: not declared by the environment", key)
		}
	}

	resolved := make([]*interfaces.ResolvedOutput, 0, len(declared))
	for _, d := range declared {
		value, fromProvider := providerOutputs[d.Key]
		source := interfaces.OutputSourceProvider
		if !fromProvider {
			if d.Default == nil {
				if d.Required {
					return nil, fmt.Errorf("required output %q missing from both provider result and template default", d.Key)
				}
				continue
			}
			value = d.Default
			source = interfaces.OutputSourceDefault
		}

		out, err := resolveOne(d, value, source)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

// resolveOne type-checks a single output value and builds its resolved record
func resolveOne(d interfaces.DeclaredOutput, value interface{}, source interfaces.OutputSource) (*interfaces.ResolvedOutput, error) {
	out := &interfaces.ResolvedOutput{
		Key:                 d.Key,
		Type:                d.Type,
		Source:              source,
		Sensitive:           d.Sensitive,
		Rotatable:           d.Rotatable,
		GeneratedCredential: d.GeneratedCredential,
	}

	if d.Type == interfaces.OutputTypeSecretRef {
		ref, ok := value.(string)
		if !ok || strings.TrimSpace(ref) == "" {
			return nil, fmt.Errorf("output %q declared as %s must resolve to an opaque reference string", d.Key, interfaces.OutputTypeSecretRef)
		}
		// Secret references carry no raw secret material and are always sensitive.
		out.SecretRef = ref
		out.Sensitive = true
		return out, nil
	}

	if err := checkOutputType(d.Type, value); err != nil {
		return nil, fmt.Errorf("output %q: %w", d.Key, err)
	}
	out.Value = value
	return out, nil
}

// checkOutputType verifies a value matches its declared output type
func checkOutputType(declared interfaces.OutputType, value interface{}) error {
	switch declared {
	case interfaces.OutputTypeString:
		return expectCtyType(value, cty.String)
	case interfaces.OutputTypeNumber:
		return expectCtyType(value, cty.Number)
	case interfaces.OutputTypeBoolean:
		return expectCtyType(value, cty.Bool)
	case interfaces.OutputTypeJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("declared type %s but value is not JSON-serializable: %w", declared, err)
		}
		if _, err := ctyjson.ImpliedType(raw); err != nil {
			return fmt.Errorf("declared type %s but value has no coherent JSON type: %w", declared, err)
		}
		return nil
	case interfaces.OutputTypeSecretRef:
		// Handled by resolveOne before type checking.
		return nil
	default:
		return fmt.Errorf("unsupported output type %q", declared)
	}
}

// expectCtyType checks that a Go value's implied cty type equals the wanted primitive
func expectCtyType(value interface{}, want cty.Type) error {
	ty, err := gocty.ImpliedType(value)
	if err != nil {
		return fmt.Errorf("declared type %s but value is %T", want.FriendlyName(), value)
	}
	if !ty.Equals(want) {
		return fmt.Errorf("declared type %s but value is %s", want.FriendlyName(), ty.FriendlyName())
	}
	return nil
}

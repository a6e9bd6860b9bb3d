package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge/internal/interfaces"
)

func TestResolveOutputs(t *testing.T) {
	t.Parallel()

	t.Run("ProviderValueWinsOverDefault", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "appUrl", Type: interfaces.OutputTypeString, Required: true, Default: "https://fallback.example.com"},
		}
		resolved, err := ResolveOutputs(declared, map[string]interface{}{"appUrl": "https://app.example.com"})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, "https://app.example.com", resolved[0].Value)
		assert.Equal(t, interfaces.OutputSourceProvider, resolved[0].Source)
	})

	t.Run("DefaultUsedWhenProviderSilent", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "replicas", Type: interfaces.OutputTypeNumber, Default: float64(2)},
		}
		resolved, err := ResolveOutputs(declared, nil)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, float64(2), resolved[0].Value)
		assert.Equal(t, interfaces.OutputSourceDefault, resolved[0].Source)
	})

	t.Run("OptionalWithoutDefaultIsSkipped", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "cdnUrl", Type: interfaces.OutputTypeString},
		}
		resolved, err := ResolveOutputs(declared, nil)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("RequiredMissingFails", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "dbHost", Type: interfaces.OutputTypeString, Required: true},
		}
		_, err := ResolveOutputs(declared, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dbHost")
	})

	t.Run("UndeclaredProviderKeyFails", func(t *testing.T) {
		t.Parallel()
		_, err := ResolveOutputs(nil, map[string]interface{}{"surprise": "value"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "surprise")
	})

	t.Run("SecretRefForcesSensitive", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "dbPassword", Type: interfaces.OutputTypeSecretRef, Sensitive: false, GeneratedCredential: true},
		}
		resolved, err := ResolveOutputs(declared, map[string]interface{}{"dbPassword": "arn:aws:secretsmanager:us-east-1:123:secret:db"})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.True(t, resolved[0].Sensitive)
		assert.True(t, resolved[0].GeneratedCredential)
		assert.Equal(t, "arn:aws:secretsmanager:us-east-1:123:secret:db", resolved[0].SecretRef)
		assert.Nil(t, resolved[0].Value)
	})

	t.Run("EmptySecretRefFails", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "dbPassword", Type: interfaces.OutputTypeSecretRef},
		}
		_, err := ResolveOutputs(declared, map[string]interface{}{"dbPassword": "  "})
		require.Error(t, err)
	})

	t.Run("TypeMismatchFails", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "replicas", Type: interfaces.OutputTypeNumber},
		}
		_, err := ResolveOutputs(declared, map[string]interface{}{"replicas": "three"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "replicas")
	})

	t.Run("BooleanAccepted", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "cdnEnabled", Type: interfaces.OutputTypeBoolean},
		}
		resolved, err := ResolveOutputs(declared, map[string]interface{}{"cdnEnabled": true})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, true, resolved[0].Value)
	})

	t.Run("JSONAcceptsStructuredValue", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "corsConfig", Type: interfaces.OutputTypeJSON},
		}
		resolved, err := ResolveOutputs(declared, map[string]interface{}{
			"corsConfig": map[string]interface{}{"origins": []interface{}{"https://example.com"}},
		})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
	})

	t.Run("JSONRejectsUnserializableValue", func(t *testing.T) {
		t.Parallel()
		declared := []interfaces.DeclaredOutput{
			{Key: "corsConfig", Type: interfaces.OutputTypeJSON},
		}
		_, err := ResolveOutputs(declared, map[string]interface{}{"corsConfig": make(chan int)})
		require.Error(t, err)
	})
}

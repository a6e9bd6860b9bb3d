package interfaces

import (
	"time"
)

// DeclaredOutput is an output key an environment declares it expects from deployment
type DeclaredOutput struct {
	Key                 string      `json:"key"`
	Type                OutputType  `json:"type"`
	Required            bool        `json:"required"`
	Default             interface{} `json:"default,omitempty"`
	Sensitive           bool        `json:"sensitive"`
	Rotatable           bool        `json:"rotatable"`
	GeneratedCredential bool        `json:"isGeneratedCredential"`
}

// EnvironmentConfig is the declared configuration of one environment
type EnvironmentConfig struct {
	Capabilities []Capability      `json:"capabilities"`
	Constraints  map[string]string `json:"constraints,omitempty"`
	Outputs      []DeclaredOutput  `json:"outputs,omitempty"`
}

// BackendValidationState records the result of the last backend validation pass
type BackendValidationState struct {
	ReadWriteOK bool       `json:"readWriteOk"`
	LockOK      bool       `json:"lockOk"`
	CheckedAt   *time.Time `json:"checkedAt,omitempty"`
}

// ProjectDocument is the persisted JSON document for one project. It is loaded
// before and saved after every state-mutating operation.
type ProjectDocument struct {
	Name                 string                                 `json:"name"`
	ProviderConnected    bool                                   `json:"providerConnected"`
	Backend              BackendSettings                        `json:"backend"`
	BackendValidation    BackendValidationState                 `json:"backendValidation"`
	Environments         map[string]*EnvironmentConfig          `json:"environments,omitempty"`
	DeploymentState      map[string]*EnvironmentDeploymentState `json:"deploymentState,omitempty"`
	DeploymentRunHistory []*DeploymentRunRecord                 `json:"deploymentRunHistory,omitempty"`
	EnvironmentOutputs   map[string][]*ResolvedOutput           `json:"environmentOutputs,omitempty"`
}

// EnvironmentState returns the deployment state for an environment, creating an
// empty entry if none exists yet
func (d *ProjectDocument) EnvironmentState(environmentID string) *EnvironmentDeploymentState {
	if d.DeploymentState == nil {
		d.DeploymentState = make(map[string]*EnvironmentDeploymentState)
	}
	state, ok := d.DeploymentState[environmentID]
	if !ok {
		state = &EnvironmentDeploymentState{LastStatus: StatusUnknown}
		d.DeploymentState[environmentID] = state
	}
	return state
}

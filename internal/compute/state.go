package compute

import (
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// InstanceState represents the provider-owned lifecycle state of an instance.
// It is never cached; every read comes from a fresh describe call.
type InstanceState int

const (
	StateUnknown InstanceState = iota
	StatePending
	StateRunning
	StateStopping
	StateStopped
	StateShuttingDown
	StateTerminated
)

func (s InstanceState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the instance is gone or on its way out.
// shutting-down is treated as terminated-in-progress.
func (s InstanceState) Terminal() bool {
	return s == StateShuttingDown || s == StateTerminated
}

func stateFromEC2(st *ec2types.InstanceState) InstanceState {
	if st == nil {
		return StateUnknown
	}
	switch st.Name {
	case ec2types.InstanceStateNamePending:
		return StatePending
	case ec2types.InstanceStateNameRunning:
		return StateRunning
	case ec2types.InstanceStateNameStopping:
		return StateStopping
	case ec2types.InstanceStateNameStopped:
		return StateStopped
	case ec2types.InstanceStateNameShuttingDown:
		return StateShuttingDown
	case ec2types.InstanceStateNameTerminated:
		return StateTerminated
	default:
		return StateUnknown
	}
}

package ui

import (
	"github.com/rovshanmuradov/solana-launchpad/internal/deploy"
)

// Tea message types for UI communication

// PhaseMsg reports an orchestrator phase transition.
type PhaseMsg struct {
	Phase   deploy.Phase
	Message string
}

// DeployDoneMsg carries the result of a finished deployment.
type DeployDoneMsg struct {
	Result *deploy.Result
}

// DeployFailedMsg carries the classified failure of a deployment.
type DeployFailedMsg struct {
	Err *deploy.DeployError
}

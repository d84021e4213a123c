package service

import (
	"fmt"

	"freightx/internal/domain"
)

// Stage is a state of the extraction state machine.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageCredentialsResolved Stage = "credentials_resolved"
	StageContentIngested     Stage = "content_ingested"
	StageRequestBuilt        Stage = "request_built"
	StageInvoked             Stage = "invoked"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// StageError is the single failure surfaced by the orchestrator. Stage is the last state
// reached before the failure; Err keeps the original error and its taxonomy sentinel.
type StageError struct {
	Stage    Stage
	Provider domain.ProviderID
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s extraction failed after %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

package models

import "sort"

// Projection is the derived aggregate view of an application's workflow.
type Projection struct {
	Status       ApplicationStatus `json:"status"`
	CurrentStage *string           `json:"current_stage,omitempty"`
	Progress     int               `json:"progress"`
}

// ProjectApplication derives the application status, current stage pointer and
// completion percentage from the full set of workflow instances. It is a pure
// function so every instance mutation can recompute the aggregate instead of
// scattering status writes.
//
// Rules:
//   - any REJECTED instance on a stage with can_reject wins: REJECTED
//   - otherwise an APPROVED instance on a stage with can_approve: APPROVED
//   - otherwise: UNDER_REVIEW
//
// The current stage is the lowest-order stage whose instance is not terminal.
// Instances referencing a stage missing from the catalog (deleted after
// instantiation) keep counting toward progress but carry no capability.
func ProjectApplication(instances []WorkflowInstance, stages map[string]StageDefinition) Projection {
	if len(instances) == 0 {
		return Projection{Status: ApplicationStatusSubmitted}
	}

	rejected := false
	approved := false
	for _, inst := range instances {
		stage, ok := stages[inst.StageID]
		if !ok {
			continue
		}
		if inst.Status == InstanceStatusRejected && stage.CanReject {
			rejected = true
		}
		if inst.Status == InstanceStatusApproved && stage.CanApprove {
			approved = true
		}
	}

	ordered := make([]WorkflowInstance, len(instances))
	copy(ordered, instances)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oj := stageSortKey(ordered[i], stages), stageSortKey(ordered[j], stages)
		if oi != oj {
			return oi < oj
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var current *string
	completed := 0
	for i := range ordered {
		if ordered[i].Status.Terminal() {
			completed++
			continue
		}
		if current == nil {
			stageID := ordered[i].StageID
			current = &stageID
		}
	}

	projection := Projection{
		Status:       ApplicationStatusUnderReview,
		CurrentStage: current,
		Progress:     completed * 100 / len(instances),
	}
	switch {
	case rejected:
		projection.Status = ApplicationStatusRejected
	case approved:
		projection.Status = ApplicationStatusApproved
	}
	return projection
}

func stageSortKey(inst WorkflowInstance, stages map[string]StageDefinition) int {
	if stage, ok := stages[inst.StageID]; ok {
		return stage.StageOrder
	}
	// Orphaned instances sort after every cataloged stage.
	return int(^uint(0) >> 1)
}

// StageIndex builds a stage lookup keyed by id.
func StageIndex(stages []StageDefinition) map[string]StageDefinition {
	index := make(map[string]StageDefinition, len(stages))
	for _, stage := range stages {
		index[stage.ID] = stage
	}
	return index
}

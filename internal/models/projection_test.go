package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture() map[string]StageDefinition {
	return StageIndex([]StageDefinition{
		{ID: "stage-review", Name: "Document Review", StageOrder: 1, CanReject: true},
		{ID: "stage-tech", Name: "Technical Assessment", StageOrder: 2, CanReject: true},
		{ID: "stage-final", Name: "Final Approval", StageOrder: 3, CanApprove: true, CanReject: true},
	})
}

func TestProjectApplicationEmpty(t *testing.T) {
	p := ProjectApplication(nil, catalogFixture())
	assert.Equal(t, ApplicationStatusSubmitted, p.Status)
	assert.Nil(t, p.CurrentStage)
	assert.Zero(t, p.Progress)
}

func TestProjectApplicationAllPending(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-review", Status: InstanceStatusPending},
		{ID: "i2", StageID: "stage-tech", Status: InstanceStatusPending},
		{ID: "i3", StageID: "stage-final", Status: InstanceStatusPending},
	}
	p := ProjectApplication(instances, catalogFixture())
	assert.Equal(t, ApplicationStatusUnderReview, p.Status)
	require.NotNil(t, p.CurrentStage)
	assert.Equal(t, "stage-review", *p.CurrentStage)
	assert.Zero(t, p.Progress)
}

func TestProjectApplicationMidReview(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-review", Status: InstanceStatusApproved},
		{ID: "i2", StageID: "stage-tech", Status: InstanceStatusInProgress},
		{ID: "i3", StageID: "stage-final", Status: InstanceStatusPending},
	}
	p := ProjectApplication(instances, catalogFixture())
	// Approval on a stage without can_approve does not decide the application.
	assert.Equal(t, ApplicationStatusUnderReview, p.Status)
	require.NotNil(t, p.CurrentStage)
	assert.Equal(t, "stage-tech", *p.CurrentStage)
	assert.Equal(t, 33, p.Progress)
}

func TestProjectApplicationApprovedByFinalStage(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-review", Status: InstanceStatusApproved},
		{ID: "i2", StageID: "stage-tech", Status: InstanceStatusApproved},
		{ID: "i3", StageID: "stage-final", Status: InstanceStatusApproved},
	}
	p := ProjectApplication(instances, catalogFixture())
	assert.Equal(t, ApplicationStatusApproved, p.Status)
	assert.Nil(t, p.CurrentStage)
	assert.Equal(t, 100, p.Progress)
}

func TestProjectApplicationRejectionWins(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-review", Status: InstanceStatusRejected},
		{ID: "i2", StageID: "stage-tech", Status: InstanceStatusPending},
		{ID: "i3", StageID: "stage-final", Status: InstanceStatusApproved},
	}
	p := ProjectApplication(instances, catalogFixture())
	assert.Equal(t, ApplicationStatusRejected, p.Status)
	require.NotNil(t, p.CurrentStage)
	assert.Equal(t, "stage-tech", *p.CurrentStage)
	assert.Equal(t, 66, p.Progress)
}

func TestProjectApplicationOrphanInstanceSortsLast(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-deleted", Status: InstanceStatusPending},
		{ID: "i2", StageID: "stage-final", Status: InstanceStatusPending},
	}
	p := ProjectApplication(instances, catalogFixture())
	require.NotNil(t, p.CurrentStage)
	assert.Equal(t, "stage-final", *p.CurrentStage)
}

func TestProjectApplicationOrphanRejectionCarriesNoCapability(t *testing.T) {
	instances := []WorkflowInstance{
		{ID: "i1", StageID: "stage-deleted", Status: InstanceStatusRejected},
		{ID: "i2", StageID: "stage-final", Status: InstanceStatusPending},
	}
	p := ProjectApplication(instances, catalogFixture())
	assert.Equal(t, ApplicationStatusUnderReview, p.Status)
	assert.Equal(t, 50, p.Progress)
}

func TestProjectApplicationDuplicateOrderTieBreaksByCreation(t *testing.T) {
	stages := StageIndex([]StageDefinition{
		{ID: "stage-a", StageOrder: 1},
		{ID: "stage-b", StageOrder: 1},
	})
	earlier := time.Now().UTC().Add(-time.Hour)
	later := time.Now().UTC()
	instances := []WorkflowInstance{
		{ID: "i-b", StageID: "stage-b", Status: InstanceStatusPending, CreatedAt: later},
		{ID: "i-a", StageID: "stage-a", Status: InstanceStatusPending, CreatedAt: earlier},
	}
	p := ProjectApplication(instances, stages)
	require.NotNil(t, p.CurrentStage)
	assert.Equal(t, "stage-a", *p.CurrentStage)
}

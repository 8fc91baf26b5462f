package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type stageStoreStub struct {
	stages        []models.StageDefinition
	orderCount    int
	instanceCount int
	replaced      [][]models.StageDefinition
	replaceErr    error
	deleted       []string
}

func (s *stageStoreStub) List(ctx context.Context, includeInactive bool) ([]models.StageDefinition, error) {
	if includeInactive {
		return s.stages, nil
	}
	var out []models.StageDefinition
	for _, stage := range s.stages {
		if stage.IsActive {
			out = append(out, stage)
		}
	}
	return out, nil
}

func (s *stageStoreStub) GetByID(ctx context.Context, id string) (*models.StageDefinition, error) {
	for i := range s.stages {
		if s.stages[i].ID == id {
			copied := s.stages[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stageStoreStub) CountByOrder(ctx context.Context, order int, excludeID string) (int, error) {
	return s.orderCount, nil
}

func (s *stageStoreStub) CountInstances(ctx context.Context, stageID string) (int, error) {
	return s.instanceCount, nil
}

func (s *stageStoreStub) Create(ctx context.Context, stage *models.StageDefinition) error {
	if stage.ID == "" {
		stage.ID = "stage-created"
	}
	s.stages = append(s.stages, *stage)
	return nil
}

func (s *stageStoreStub) Update(ctx context.Context, stage *models.StageDefinition) error {
	for i := range s.stages {
		if s.stages[i].ID == stage.ID {
			s.stages[i] = *stage
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stageStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stageStoreStub) ReplaceAll(ctx context.Context, stages []models.StageDefinition) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced = append(s.replaced, stages)
	s.stages = stages
	return nil
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, zap.NewNop(), false)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func newStageFixture(policy StagePolicy) (*StageService, *stageStoreStub) {
	store := &stageStoreStub{}
	svc := NewStageService(store, disabledCache(), &auditStub{}, zap.NewNop(), policy)
	return svc, store
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestStageCreateAppliesDefaults(t *testing.T) {
	svc, _ := newStageFixture(StagePolicy{})

	stage, err := svc.Create(context.Background(), dto.CreateStageRequest{
		Name:       "Inspection",
		StageOrder: intPtr(2),
	}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, 1, stage.EstimatedDuration)
	assert.Equal(t, models.StageRoleReviewer, stage.AssignedRole)
	assert.False(t, stage.CanApprove)
	assert.False(t, stage.CanReject)
	assert.True(t, stage.IsRequired)
	assert.True(t, stage.IsActive)
	assert.NotNil(t, stage.RequiredDocuments)
}

func TestStageCreateRequiresAdmin(t *testing.T) {
	svc, _ := newStageFixture(StagePolicy{})

	_, err := svc.Create(context.Background(), dto.CreateStageRequest{
		Name:       "Inspection",
		StageOrder: intPtr(2),
	}, staffClaims())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStageCreateRequiresNameAndOrder(t *testing.T) {
	svc, _ := newStageFixture(StagePolicy{})

	_, err := svc.Create(context.Background(), dto.CreateStageRequest{StageOrder: intPtr(1)}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateStageRequest{Name: "No Order"}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStageCreateStrictOrderPolicy(t *testing.T) {
	svc, store := newStageFixture(StagePolicy{StrictStageOrder: true})
	store.orderCount = 1

	_, err := svc.Create(context.Background(), dto.CreateStageRequest{
		Name:       "Duplicate Order",
		StageOrder: intPtr(1),
	}, adminClaims())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStageUpdatePartialEdit(t *testing.T) {
	svc, store := newStageFixture(StagePolicy{})
	store.stages = []models.StageDefinition{{
		ID: "stage-1", Name: "Document Review", StageOrder: 1,
		EstimatedDuration: 3, AssignedRole: models.StageRoleReviewer,
		CanReject: true, IsRequired: true, IsActive: true,
	}}

	stage, err := svc.Update(context.Background(), "stage-1", dto.UpdateStageRequest{
		Name:       strPtr("Preliminary Review"),
		CanApprove: boolPtr(true),
	}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, "Preliminary Review", stage.Name)
	assert.True(t, stage.CanApprove)
	// Untouched fields survive.
	assert.Equal(t, 1, stage.StageOrder)
	assert.Equal(t, 3, stage.EstimatedDuration)
	assert.True(t, stage.CanReject)
}

func TestStageUpdateMissing(t *testing.T) {
	svc, _ := newStageFixture(StagePolicy{})

	_, err := svc.Update(context.Background(), "ghost", dto.UpdateStageRequest{Name: strPtr("X")}, adminClaims())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStageDeleteIsIdempotent(t *testing.T) {
	svc, store := newStageFixture(StagePolicy{})

	require.NoError(t, svc.Delete(context.Background(), "stage-1", adminClaims()))
	require.NoError(t, svc.Delete(context.Background(), "stage-1", adminClaims()))
	assert.Len(t, store.deleted, 2)
}

func TestStageDeleteInUsePolicy(t *testing.T) {
	svc, store := newStageFixture(StagePolicy{ForbidDeleteInUse: true})
	store.instanceCount = 4

	err := svc.Delete(context.Background(), "stage-1", adminClaims())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.deleted)
}

func TestStageListInactiveRequiresAdmin(t *testing.T) {
	svc, store := newStageFixture(StagePolicy{})
	store.stages = []models.StageDefinition{
		{ID: "stage-1", IsActive: true},
		{ID: "stage-2", IsActive: false},
	}

	_, err := svc.List(context.Background(), true, applicantClaims("user-1"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	all, err := svc.List(context.Background(), true, adminClaims())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(context.Background(), false, applicantClaims("user-1"))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

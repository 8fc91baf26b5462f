package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

func newTemplateFixture() (*TemplateService, *stageStoreStub) {
	store := &stageStoreStub{}
	svc := NewTemplateService(store, disabledCache(), &auditStub{}, zap.NewNop())
	return svc, store
}

func TestTemplatesListsBuiltIns(t *testing.T) {
	svc, _ := newTemplateFixture()

	templates := svc.Templates()
	require.Len(t, templates, 2)
	assert.Equal(t, TemplateStandard, templates[0].Name)
	assert.Len(t, templates[0].Stages, 4)
	assert.Equal(t, TemplateFastTrack, templates[1].Name)
	assert.Len(t, templates[1].Stages, 2)

	// Only the last stage of each template can approve.
	for _, template := range templates {
		for i, stage := range template.Stages {
			if i == len(template.Stages)-1 {
				assert.True(t, stage.CanApprove, template.Name)
			} else {
				assert.False(t, stage.CanApprove, template.Name)
			}
			assert.True(t, stage.CanReject, template.Name)
		}
	}
}

func TestTemplateApplyReplacesCatalog(t *testing.T) {
	svc, store := newTemplateFixture()
	store.stages = []models.StageDefinition{{ID: "old-stage", Name: "Legacy", IsActive: true}}

	stages, err := svc.Apply(context.Background(), TemplateStandard, adminClaims())
	require.NoError(t, err)
	assert.Len(t, stages, 4)
	require.Len(t, store.replaced, 1)
	assert.Len(t, store.stages, 4)
}

func TestTemplateApplyUnknownName(t *testing.T) {
	svc, store := newTemplateFixture()

	_, err := svc.Apply(context.Background(), "Express Lane", adminClaims())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.replaced)
}

func TestTemplateApplyRequiresAdmin(t *testing.T) {
	svc, store := newTemplateFixture()

	_, err := svc.Apply(context.Background(), TemplateStandard, staffClaims())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.replaced)
}

func TestTemplateApplySurfacesStoreFailure(t *testing.T) {
	svc, store := newTemplateFixture()
	store.stages = []models.StageDefinition{{ID: "old-stage", Name: "Legacy", IsActive: true}}
	store.replaceErr = errors.New("disk on fire")

	_, err := svc.Apply(context.Background(), TemplateStandard, adminClaims())
	require.Error(t, err)
	// The previous catalog is untouched on failure.
	assert.Len(t, store.stages, 1)
}

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

type commentStoreStub struct {
	comments []models.WorkflowComment
	filters  []models.CommentFilter
}

func (s *commentStoreStub) Create(ctx context.Context, comment *models.WorkflowComment) error {
	if comment.ID == "" {
		comment.ID = "comment-new"
	}
	s.comments = append(s.comments, *comment)
	return nil
}

func (s *commentStoreStub) GetByID(ctx context.Context, id string) (*models.WorkflowComment, error) {
	for i := range s.comments {
		if s.comments[i].ID == id {
			copied := s.comments[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *commentStoreStub) List(ctx context.Context, filter models.CommentFilter) ([]models.WorkflowComment, error) {
	s.filters = append(s.filters, filter)
	var out []models.WorkflowComment
	for _, comment := range s.comments {
		if filter.ApplicationID != "" && comment.ApplicationID != filter.ApplicationID {
			continue
		}
		if filter.WorkflowID != "" && comment.WorkflowID != filter.WorkflowID {
			continue
		}
		if comment.IsInternal && !filter.IncludeInternal {
			continue
		}
		out = append(out, comment)
	}
	return out, nil
}

func (s *commentStoreStub) Update(ctx context.Context, comment *models.WorkflowComment) error {
	for i := range s.comments {
		if s.comments[i].ID == comment.ID {
			s.comments[i] = *comment
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *commentStoreStub) Delete(ctx context.Context, id string) error {
	for i := range s.comments {
		if s.comments[i].ID == id {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newCommentFixture() (*CommentService, *commentStoreStub, *workflowStoreStub, *applicationStoreStub) {
	comments := &commentStoreStub{}
	instances := &workflowStoreStub{}
	apps := &applicationStoreStub{apps: map[string]*models.Application{}}
	svc := NewCommentService(comments, instances, apps, &auditStub{}, zap.NewNop())
	return svc, comments, instances, apps
}

func seedCommentContext(instances *workflowStoreStub, apps *applicationStoreStub) {
	seedApplication(apps, "app-1", "user-1")
	instances.instances = append(instances.instances, models.WorkflowInstance{
		ID: "inst-1", ApplicationID: "app-1", StageID: "stage-review",
		Status: models.InstanceStatusInProgress, Version: 1,
	})
}

func TestCommentCreateByStaff(t *testing.T) {
	svc, comments, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)

	comment, err := svc.Create(context.Background(), dto.CreateCommentRequest{
		ApplicationID: "app-1",
		WorkflowID:    "inst-1",
		Comment:       "Needs a second look",
		IsInternal:    true,
	}, staffClaims())
	require.NoError(t, err)
	assert.True(t, comment.IsInternal)
	assert.Equal(t, "staff-1", comment.UserID)
	assert.Len(t, comments.comments, 1)
}

func TestCommentCreateApplicantCannotMarkInternal(t *testing.T) {
	svc, comments, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)

	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{
		ApplicationID: "app-1",
		WorkflowID:    "inst-1",
		Comment:       "Please hurry",
		IsInternal:    true,
	}, applicantClaims("user-1"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, comments.comments)
}

func TestCommentCreateApplicantOnOthersApplication(t *testing.T) {
	svc, _, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)

	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{
		ApplicationID: "app-1",
		WorkflowID:    "inst-1",
		Comment:       "Snooping",
	}, applicantClaims("user-2"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommentCreateInstanceMismatch(t *testing.T) {
	svc, _, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)

	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{
		ApplicationID: "app-other",
		WorkflowID:    "inst-1",
		Comment:       "Wrong application",
	}, staffClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommentListFiltersInternalForApplicants(t *testing.T) {
	svc, comments, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)
	comments.comments = []models.WorkflowComment{
		{ID: "c1", ApplicationID: "app-1", WorkflowID: "inst-1", UserID: "staff-1", Comment: "Internal note", IsInternal: true},
		{ID: "c2", ApplicationID: "app-1", WorkflowID: "inst-1", UserID: "user-1", Comment: "Public reply"},
	}

	// Applicant asking for internal comments still only sees public ones.
	visible, err := svc.List(context.Background(), models.CommentFilter{
		ApplicationID:   "app-1",
		IncludeInternal: true,
	}, applicantClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "c2", visible[0].ID)
	require.NotEmpty(t, comments.filters)
	assert.False(t, comments.filters[len(comments.filters)-1].IncludeInternal)

	all, err := svc.List(context.Background(), models.CommentFilter{
		ApplicationID:   "app-1",
		IncludeInternal: true,
	}, staffClaims())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCommentUpdateOnlyAuthorOrAdmin(t *testing.T) {
	svc, comments, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)
	comments.comments = []models.WorkflowComment{
		{ID: "c1", ApplicationID: "app-1", WorkflowID: "inst-1", UserID: "user-1", Comment: "Original"},
	}

	_, err := svc.Update(context.Background(), "c1", dto.UpdateCommentRequest{
		Comment: strPtr("Hijacked"),
	}, staffClaims())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "c1", dto.UpdateCommentRequest{
		Comment: strPtr("Edited by author"),
	}, applicantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "Edited by author", updated.Comment)

	byAdmin, err := svc.Update(context.Background(), "c1", dto.UpdateCommentRequest{
		Comment: strPtr("Moderated"),
	}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Moderated", byAdmin.Comment)
}

func TestCommentDelete(t *testing.T) {
	svc, comments, instances, apps := newCommentFixture()
	seedCommentContext(instances, apps)
	comments.comments = []models.WorkflowComment{
		{ID: "c1", ApplicationID: "app-1", WorkflowID: "inst-1", UserID: "user-1", Comment: "Delete me"},
	}

	err := svc.Delete(context.Background(), "c1", applicantClaims("user-2"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "c1", applicantClaims("user-1")))
	assert.Empty(t, comments.comments)

	err = svc.Delete(context.Background(), "c1", adminClaims())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

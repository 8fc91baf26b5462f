package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type instantiatorStub struct {
	calls int
	err   error
}

func (s *instantiatorStub) InstantiateForApplication(ctx context.Context, app *models.Application) ([]models.WorkflowInstance, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.WorkflowInstance{{ID: "inst-1", ApplicationID: app.ID}}, nil
}

func newApplicationFixture() (*ApplicationService, *applicationStoreStub, *instantiatorStub, *notifierStub) {
	apps := &applicationStoreStub{apps: map[string]*models.Application{}}
	workflows := &instantiatorStub{}
	notify := &notifierStub{}
	svc := NewApplicationService(apps, workflows, notify, &auditStub{}, zap.NewNop())
	return svc, apps, workflows, notify
}

func TestApplicationSubmitTriggersWorkflow(t *testing.T) {
	svc, apps, workflows, notify := newApplicationFixture()

	app, err := svc.Submit(context.Background(), dto.SubmitApplicationRequest{
		LicenseType: "Community TV",
	}, applicantClaims("user-1"))
	require.NoError(t, err)

	assert.Equal(t, "user-1", app.ApplicantID)
	assert.Equal(t, "Community TV", app.LicenseType)
	assert.NotNil(t, app.SubmittedAt)
	assert.Equal(t, 1, workflows.calls)
	require.NotEmpty(t, notify.sent)
	assert.Equal(t, models.NotificationTypeSubmitted, notify.sent[0])
	assert.Len(t, apps.apps, 1)
}

func TestApplicationSubmitRequiresLicenseType(t *testing.T) {
	svc, _, workflows, _ := newApplicationFixture()

	_, err := svc.Submit(context.Background(), dto.SubmitApplicationRequest{LicenseType: "  "}, applicantClaims("user-1"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, workflows.calls)
}

func TestApplicationSubmitSurfacesInstantiationFailure(t *testing.T) {
	svc, _, workflows, _ := newApplicationFixture()
	workflows.err = appErrors.Clone(appErrors.ErrValidation, "no active workflow stages configured")

	_, err := svc.Submit(context.Background(), dto.SubmitApplicationRequest{LicenseType: "AM Radio"}, applicantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationGetScopedToOwner(t *testing.T) {
	svc, apps, _, _ := newApplicationFixture()
	seedApplication(apps, "app-1", "user-1")

	owned, err := svc.Get(context.Background(), "app-1", applicantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "app-1", owned.ID)

	_, err = svc.Get(context.Background(), "app-1", applicantClaims("user-2"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	asStaff, err := svc.Get(context.Background(), "app-1", staffClaims())
	require.NoError(t, err)
	assert.Equal(t, "app-1", asStaff.ID)
}

func TestApplicationConfirmPayment(t *testing.T) {
	svc, apps, _, notify := newApplicationFixture()
	seedApplication(apps, "app-1", "user-1")

	confirmed, err := svc.ConfirmPayment(context.Background(), "app-1", dto.ConfirmPaymentRequest{
		Reference: "PAY-2026-001",
	}, staffClaims())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.NotNil(t, confirmed.PaidAt)
	require.NotEmpty(t, notify.sent)
	assert.Equal(t, models.NotificationTypePaymentConfirmed, notify.sent[0])
}

func TestApplicationConfirmPaymentStaffOnly(t *testing.T) {
	svc, apps, _, _ := newApplicationFixture()
	seedApplication(apps, "app-1", "user-1")

	_, err := svc.ConfirmPayment(context.Background(), "app-1", dto.ConfirmPaymentRequest{}, applicantClaims("user-1"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationConfirmPaymentAlreadyPaid(t *testing.T) {
	svc, apps, _, _ := newApplicationFixture()
	app := seedApplication(apps, "app-1", "user-1")
	app.PaymentStatus = models.PaymentStatusPaid

	_, err := svc.ConfirmPayment(context.Background(), "app-1", dto.ConfirmPaymentRequest{}, staffClaims())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApplicationConfirmPaymentMissing(t *testing.T) {
	svc, _, _, _ := newApplicationFixture()

	_, err := svc.ConfirmPayment(context.Background(), "ghost", dto.ConfirmPaymentRequest{}, staffClaims())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound) || appErrors.FromError(err).Code == appErrors.ErrNotFound.Code)
}

package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-labs/license-portal-api/internal/dto"
	"github.com/broadcast-labs/license-portal-api/internal/middleware"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
)

type applicationServiceMock struct {
	submitResp  *models.Application
	submitErr   error
	getResp     *models.Application
	getErr      error
	paymentResp *models.Application
	paymentErr  error
	submitReq   dto.SubmitApplicationRequest
}

func (m *applicationServiceMock) Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	m.submitReq = req
	return m.submitResp, m.submitErr
}

func (m *applicationServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error) {
	return m.getResp, m.getErr
}

func (m *applicationServiceMock) ConfirmPayment(ctx context.Context, id string, req dto.ConfirmPaymentRequest, actor *models.JWTClaims) (*models.Application, error) {
	return m.paymentResp, m.paymentErr
}

type workflowServiceMock struct {
	listResp       []models.WorkflowInstance
	listErr        error
	updateResp     *models.WorkflowInstance
	updateErr      error
	lastInstanceID string
	lastReq        dto.UpdateInstanceStatusRequest
}

func (m *workflowServiceMock) ListForApplication(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]models.WorkflowInstance, error) {
	return m.listResp, m.listErr
}

func (m *workflowServiceMock) UpdateInstanceStatus(ctx context.Context, applicationID, instanceID string, req dto.UpdateInstanceStatusRequest, actor *models.JWTClaims) (*models.WorkflowInstance, error) {
	m.lastInstanceID = instanceID
	m.lastReq = req
	return m.updateResp, m.updateErr
}

type certificateServiceMock struct {
	pdf []byte
	err error
}

func (m *certificateServiceMock) Issue(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]byte, error) {
	return m.pdf, m.err
}

func testContext(t *testing.T, method, target string, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func applicantTestClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleApplicant}
}

func staffTestClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
}

func TestApplicationHandlerSubmit(t *testing.T) {
	apps := &applicationServiceMock{submitResp: &models.Application{ID: "app-1", LicenseType: "FM Radio"}}
	h := NewApplicationHandler(apps, &workflowServiceMock{}, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPost, "/applications", `{"licenseType":"FM Radio"}`, applicantTestClaims())
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "FM Radio", apps.submitReq.LicenseType)
}

func TestApplicationHandlerSubmitInvalidBody(t *testing.T) {
	h := NewApplicationHandler(&applicationServiceMock{}, &workflowServiceMock{}, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPost, "/applications", `{"licenseType":`, applicantTestClaims())
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationHandlerSubmitUnauthenticated(t *testing.T) {
	h := NewApplicationHandler(&applicationServiceMock{}, &workflowServiceMock{}, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPost, "/applications", `{"licenseType":"FM Radio"}`, nil)
	h.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApplicationHandlerTransition(t *testing.T) {
	workflows := &workflowServiceMock{updateResp: &models.WorkflowInstance{
		ID: "inst-1", Status: models.InstanceStatusApproved,
	}}
	h := NewApplicationHandler(&applicationServiceMock{}, workflows, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPatch, "/applications/app-1/workflow/inst-1",
		`{"status":"APPROVED","version":2}`, staffTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}, {Key: "workflowId", Value: "inst-1"}}
	h.Transition(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inst-1", workflows.lastInstanceID)
	assert.Equal(t, models.InstanceStatusApproved, workflows.lastReq.Status)
	assert.Equal(t, 2, workflows.lastReq.Version)
}

func TestApplicationHandlerTransitionInvalid(t *testing.T) {
	workflows := &workflowServiceMock{updateErr: appErrors.ErrInvalidTransition}
	h := NewApplicationHandler(&applicationServiceMock{}, workflows, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPatch, "/applications/app-1/workflow/inst-1",
		`{"status":"REJECTED"}`, staffTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}, {Key: "workflowId", Value: "inst-1"}}
	h.Transition(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestApplicationHandlerTransitionVersionConflict(t *testing.T) {
	workflows := &workflowServiceMock{updateErr: appErrors.ErrVersionConflict}
	h := NewApplicationHandler(&applicationServiceMock{}, workflows, &certificateServiceMock{})

	c, w := testContext(t, http.MethodPatch, "/applications/app-1/workflow/inst-1",
		`{"status":"APPROVED","version":1}`, staffTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}, {Key: "workflowId", Value: "inst-1"}}
	h.Transition(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApplicationHandlerWorkflowList(t *testing.T) {
	workflows := &workflowServiceMock{listResp: []models.WorkflowInstance{{ID: "inst-1"}}}
	h := NewApplicationHandler(&applicationServiceMock{}, workflows, &certificateServiceMock{})

	c, w := testContext(t, http.MethodGet, "/applications/app-1/workflow", "", applicantTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	h.Workflow(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApplicationHandlerCertificate(t *testing.T) {
	certs := &certificateServiceMock{pdf: []byte("%PDF-1.4 test")}
	h := NewApplicationHandler(&applicationServiceMock{}, &workflowServiceMock{}, certs)

	c, w := testContext(t, http.MethodGet, "/applications/app-1/certificate", "", applicantTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	h.Certificate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificate-app-1.pdf")
}

func TestApplicationHandlerCertificateNotReady(t *testing.T) {
	certs := &certificateServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "application has not been approved")}
	h := NewApplicationHandler(&applicationServiceMock{}, &workflowServiceMock{}, certs)

	c, w := testContext(t, http.MethodGet, "/applications/app-1/certificate", "", applicantTestClaims())
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	h.Certificate(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/broadcast-labs/license-portal-api/internal/models"
	appErrors "github.com/broadcast-labs/license-portal-api/pkg/errors"
	"github.com/broadcast-labs/license-portal-api/pkg/export"
)

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CertificateService issues PDF license certificates for approved and paid
// applications.
type CertificateService struct {
	apps      applicationReader
	users     userReader
	exporter  *export.CertificateExporter
	authority string
	enabled   bool
	logger    *zap.Logger
}

// NewCertificateService constructs the service.
func NewCertificateService(apps applicationReader, users userReader, exporter *export.CertificateExporter, authority string, enabled bool, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		apps:      apps,
		users:     users,
		exporter:  exporter,
		authority: authority,
		enabled:   enabled,
		logger:    logger,
	}
}

// Issue renders the certificate for an application. The application must be
// approved with its fee paid, and applicants can only fetch their own.
func (s *CertificateService) Issue(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]byte, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate issuance is disabled")
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.Role.IsStaff() && app.ApplicantID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if app.Status != models.ApplicationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application has not been approved")
	}
	if app.PaymentStatus != models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "license fee has not been paid")
	}

	applicant, err := s.users.FindByID(ctx, app.ApplicantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}

	approvedAt := time.Now().UTC()
	if app.ApprovedAt != nil {
		approvedAt = *app.ApprovedAt
	}
	cert := export.Certificate{
		Number:        certificateNumber(app),
		Authority:     s.authority,
		ApplicantName: applicant.FullName,
		LicenseType:   app.LicenseType,
		ApprovedAt:    approvedAt,
		IssuedAt:      time.Now().UTC(),
	}

	pdf, err := s.exporter.Render(cert)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	s.logger.Info("issued license certificate",
		zap.String("application_id", app.ID),
		zap.String("certificate_number", cert.Number))
	return pdf, nil
}

// certificateNumber derives a stable human-readable number from the
// application identity.
func certificateNumber(app *models.Application) string {
	year := time.Now().UTC().Year()
	if app.ApprovedAt != nil {
		year = app.ApprovedAt.Year()
	}
	suffix := app.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("BL-%d-%s", year, suffix)
}

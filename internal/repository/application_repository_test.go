package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-labs/license-portal-api/internal/models"
)

func TestApplicationRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	app := &models.Application{ApplicantID: "user-1", LicenseType: "FM Radio"}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.ApplicationStatusSubmitted, app.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, app.PaymentStatus)
}

func TestApplicationRepositoryUpdateProjectionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProjection(context.Background(), ProjectionParams{
		ID:     "missing",
		Status: models.ApplicationStatusUnderReview,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestApplicationRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	paidAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET payment_status = $1")).
		WithArgs(models.PaymentStatusPaid, paidAt, sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPaid(context.Background(), "app-1", paidAt))
}

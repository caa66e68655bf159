package profile

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trend-radar/internal/model"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(gormDB), mock
}

func TestStore_Get(t *testing.T) {
	s, mock := setupMockDB(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "industry", "innovation_priorities", "business_challenges", "team_expertise", "budget", "timeline", "updated_at"}).
		AddRow("acme", "Acme", "Retail", `["personalization","ai"]`, `["churn"]`, `["go"]`, "low", "immediate", now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "company_profiles" WHERE id = $1`)).
		WithArgs("acme", 1).
		WillReturnRows(rows)

	p, err := s.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, []string{"personalization", "ai"}, p.InnovationPriorities)
	assert.Equal(t, []string{"churn"}, p.BusinessChallenges)
	assert.Equal(t, "immediate", p.Timeline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "company_profiles"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetError(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "company_profiles"`)).
		WillReturnError(errors.New("connection refused"))

	_, err := s.Get(context.Background(), "acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_Upsert(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "company_profiles"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Upsert(context.Background(), &model.CompanyProfile{ID: "acme", Name: "Acme", InnovationPriorities: []string{"ai"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertRequiresID(t *testing.T) {
	s, _ := setupMockDB(t)
	assert.Error(t, s.Upsert(context.Background(), &model.CompanyProfile{Name: "no id"}))
	assert.Error(t, s.Upsert(context.Background(), nil))
}

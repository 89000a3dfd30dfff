package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := common.DatabaseConfig{
		Driver: common.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString()),
	}
	db, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func strp(s string) *string { return &s }

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestOwnerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOwnerRepository(openTestDB(t), nil)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	created, err := repo.Upsert(ctx, &entity.Owner{ID: "tutor-1", Name: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	renamed, err := repo.Upsert(ctx, &entity.Owner{ID: "tutor-1", Name: "Jane Perera"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Perera", renamed.Name)
	assert.True(t, created.CreatedAt.Equal(renamed.CreatedAt), "created_at is kept on rename")

	_, err = repo.Upsert(ctx, &entity.Owner{ID: " "})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = repo.Upsert(ctx, &entity.Owner{ID: "tutor-0", CreatedAt: created.CreatedAt.Add(-time.Hour)})
	require.NoError(t, err)
	owners, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "tutor-0", owners[0].ID)
	assert.Equal(t, "", owners[0].Name)
}

func TestCertificateRepository_ListByOwnerOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	owners := NewOwnerRepository(db, nil)
	certs := NewCertificateRepository(db, nil)

	_, err := owners.Upsert(ctx, &entity.Owner{ID: "o1", Name: "A"})
	require.NoError(t, err)
	_, err = owners.Upsert(ctx, &entity.Owner{ID: "o2", Name: "B"})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c3", "c1", "c2"} {
		_, err := certs.Create(ctx, &entity.Certificate{
			ID:        id,
			OwnerID:   "o1",
			FileURL:   "https://files.example/" + id + ".pdf",
			CreatedAt: base.Add(time.Duration(2-i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err = certs.Create(ctx, &entity.Certificate{OwnerID: "o2", FileURL: "https://files.example/x.pdf"})
	require.NoError(t, err)

	list, err := certs.ListByOwner(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
	assert.Equal(t, "c3", list[2].ID)
	assert.Nil(t, list[0].Analysis)

	empty, err := certs.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCertificateRepository_CreateWithoutURL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := NewOwnerRepository(db, nil).Upsert(ctx, &entity.Owner{ID: "o1"})
	require.NoError(t, err)

	certs := NewCertificateRepository(db, nil)
	c, err := certs.Create(ctx, &entity.Certificate{OwnerID: "o1"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "", c.FileURL)

	_, err = certs.Create(ctx, &entity.Certificate{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = certs.Create(ctx, &entity.Certificate{OwnerID: "ghost"})
	assert.ErrorIs(t, err, common.ErrPersistence, "foreign key to owners is enforced")
}

func TestCertificateRepository_SaveAnalysis(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := NewOwnerRepository(db, nil).Upsert(ctx, &entity.Owner{ID: "o1"})
	require.NoError(t, err)
	certs := NewCertificateRepository(db, nil)
	_, err = certs.Create(ctx, &entity.Certificate{ID: "c1", OwnerID: "o1", FileURL: "https://f/c1.pdf"})
	require.NoError(t, err)

	a := &entity.Analysis{
		Fields: entity.Fields{
			ReferenceNumber: strp("EX/1"),
			Title:           strp(constants.CanonicalTitle),
			Name:            strp("Jane"),
			IndexNumber:     strp(""),
		},
		Status:        constants.StatusNotVerified,
		Message:       constants.MessageMissingPrefix + "year",
		ExtractedText: "My Ref.: EX/1\n",
		AnalysisID:    uuid.New(),
		AnalyzedAt:    time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC),
	}
	require.NoError(t, certs.SaveAnalysis(ctx, "o1", "c1", a))
	first, err := certs.Get(ctx, "c1")
	require.NoError(t, err)

	require.NoError(t, certs.SaveAnalysis(ctx, "o1", "c1", a))
	second, err := certs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "saving the same analysis twice is idempotent")

	got := second.Analysis
	require.NotNil(t, got)
	assert.Equal(t, a.Status, got.Status)
	assert.Equal(t, a.Message, got.Message)
	assert.Equal(t, a.ExtractedText, got.ExtractedText)
	assert.Equal(t, a.AnalysisID, got.AnalysisID)
	assert.True(t, a.AnalyzedAt.Equal(got.AnalyzedAt))
	assert.Equal(t, "EX/1", *got.ReferenceNumber)
	require.NotNil(t, got.IndexNumber, "empty value stays distinct from absent")
	assert.Equal(t, "", *got.IndexNumber)
	assert.Nil(t, got.Year)
}

func TestCertificateRepository_SaveAnalysisWrongOwner(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	owners := NewOwnerRepository(db, nil)
	_, err := owners.Upsert(ctx, &entity.Owner{ID: "o1"})
	require.NoError(t, err)
	_, err = owners.Upsert(ctx, &entity.Owner{ID: "o2"})
	require.NoError(t, err)
	certs := NewCertificateRepository(db, nil)
	_, err = certs.Create(ctx, &entity.Certificate{ID: "c1", OwnerID: "o1"})
	require.NoError(t, err)

	a := &entity.Analysis{Status: constants.StatusVerified, Message: constants.MessageVerified, AnalyzedAt: time.Now()}
	assert.ErrorIs(t, certs.SaveAnalysis(ctx, "o2", "c1", a), common.ErrNotFound)
	assert.ErrorIs(t, certs.SaveAnalysis(ctx, "o1", "nope", a), common.ErrNotFound)

	c, err := certs.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, c.Analysis)
}

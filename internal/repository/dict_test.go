package repository

import (
	"context"
	"testing"

	"petbuddies/internal/models"
	"petbuddies/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictRepository_PostalCodes(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewDictRepository(db)
	ctx := context.Background()

	n, err := repo.InsertPostalCodes(ctx, []models.PostalCode{
		{PostalCode: "30-001", Place: "Kraków", Lat: 50.06, Lon: 19.94},
		{PostalCode: "30-002", Place: "Kraków", Lat: 50.06, Lon: 19.93},
		{PostalCode: "80-001", Place: "Gdańsk", Lat: 54.35, Lon: 18.65},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// A second load is skipped.
	n, err = repo.InsertPostalCodes(ctx, []models.PostalCode{{PostalCode: "00-001", Place: "Warszawa"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	byCode, err := repo.SearchPostalCodes(ctx, "30-")
	require.NoError(t, err)
	assert.Len(t, byCode, 2)

	byPlace, err := repo.SearchPostalCodes(ctx, " gda")
	require.NoError(t, err)
	require.Len(t, byPlace, 1)
	assert.Equal(t, "80-001", byPlace[0].PostalCode)

	none, err := repo.SearchPostalCodes(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, none)

	ok, err := repo.PostalCodeExists(ctx, "80-001")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.PostalCodeExists(ctx, "99-999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDictRepository_ReportTypes(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewDictRepository(db)
	ctx := context.Background()

	n, err := repo.EnsureReportTypes(ctx, []string{"Spam", "Oszustwo"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.EnsureReportTypes(ctx, []string{"Spam", "Nękanie"})
	require.NoError(t, err)

	types, err := repo.ListReportTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 3)

	rt, err := repo.GetReportType(ctx, types[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Spam", rt.Name)

	_, err = repo.GetReportType(ctx, 999)
	assert.Equal(t, 404, models.StatusForError(err))
}

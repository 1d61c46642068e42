package repo

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/sibyl/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *AnalysisRecordRepo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AnalysisRecord{}))
	return NewAnalysisRecordRepo(db)
}

func newRecord(symbol string) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:           ulid.Make().String(),
		Symbol:       symbol,
		Decision:     models.DecisionBuy,
		Confidence:   7,
		CurrentPrice: 100,
		Timeframe:    "3-5 days",
	}
}

func TestAnalysisRecordRepo_FindPending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := newRecord("AAPL")
	second := newRecord("MSFT")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.FindPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	outcome := ReconcileOutcome{
		ActualPrice:         105,
		ActualChangePercent: 5,
		PredictionAccuracy:  1,
		TargetReached:       true,
		LastChecked:         time.Now(),
		DaysElapsed:         4,
	}
	updated, err := repo.CompleteReconciliation(ctx, first.ID, outcome)
	require.NoError(t, err)
	assert.True(t, updated)

	pending, err = repo.FindPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	reconciled, err := repo.FindReconciled(ctx)
	require.NoError(t, err)
	require.Len(t, reconciled, 1)
	assert.Equal(t, first.ID, reconciled[0].ID)
	require.NotNil(t, reconciled[0].ActualPrice)
	assert.Equal(t, 105.0, *reconciled[0].ActualPrice)
	require.NotNil(t, reconciled[0].TargetReached)
	assert.True(t, *reconciled[0].TargetReached)
	assert.True(t, reconciled[0].IsReconciled())
	assert.True(t, reconciled[0].IsCorrect())
}

func TestAnalysisRecordRepo_CompleteReconciliationOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := newRecord("NVDA")
	require.NoError(t, repo.Create(ctx, record))

	outcome := ReconcileOutcome{
		ActualPrice:        120,
		PredictionAccuracy: 0.8,
		LastChecked:        time.Now(),
		DaysElapsed:        5,
	}

	updated, err := repo.CompleteReconciliation(ctx, record.ID, outcome)
	require.NoError(t, err)
	assert.True(t, updated)

	// 第二次写入必须失败，已核对记录不可覆盖
	second := outcome
	second.ActualPrice = 999
	updated, err = repo.CompleteReconciliation(ctx, record.ID, second)
	require.NoError(t, err)
	assert.False(t, updated)

	saved, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.ActualPrice)
	assert.Equal(t, 120.0, *saved.ActualPrice)
}

func TestAnalysisRecordRepo_FindBySymbol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("AAPL")))
	require.NoError(t, repo.Create(ctx, newRecord("AAPL")))
	require.NoError(t, repo.Create(ctx, newRecord("TSLA")))

	records, err := repo.FindBySymbol(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = repo.FindBySymbol(ctx, "AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

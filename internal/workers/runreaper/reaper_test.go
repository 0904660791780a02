package runreaper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/pkg/logger"
)

type mockRunRepo struct {
	mock.Mock
}

func (m *mockRunRepo) Create(ctx context.Context, run *entities.RiskRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RiskRun), args.Error(1)
}

func (m *mockRunRepo) GetWithBreakdowns(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RiskRun), args.Error(1)
}

func (m *mockRunRepo) ListByPortfolioID(ctx context.Context, portfolioID uuid.UUID, limit, offset int) ([]*entities.RiskRun, error) {
	args := m.Called(ctx, portfolioID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RiskRun), args.Error(1)
}

func (m *mockRunRepo) Update(ctx context.Context, run *entities.RiskRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRunRepo) Complete(ctx context.Context, run *entities.RiskRun, rows []*entities.RiskBreakdown) error {
	return m.Called(ctx, run, rows).Error(0)
}

func (m *mockRunRepo) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	args := m.Called(ctx, cutoff, message)
	return args.Get(0).(int64), args.Error(1)
}

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRunRepo)
	reaper := New(repo, 10*time.Minute, "*/5 * * * *", logger.NewNop())

	var cutoff time.Time
	repo.On("FailStale", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			cutoff = args.Get(1).(time.Time)
		}).Return(int64(2), nil)

	count, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The cutoff trails now by the staleness window.
	assert.WithinDuration(t, time.Now().Add(-10*time.Minute), cutoff, 2*time.Second)
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
)

func TestPortfolioServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to active and usd", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		repo.On("Create", ctx, mock.AnythingOfType("*entities.Portfolio")).Return(nil)
		svc := NewPortfolioService(repo, logger.NewNop())

		portfolio, err := svc.Create(ctx, CreatePortfolioRequest{Name: "Retirement"})
		require.NoError(t, err)

		assert.Equal(t, "Retirement", portfolio.Name)
		assert.Equal(t, "USD", portfolio.BaseCurrency)
		assert.Equal(t, entities.PortfolioStatusActive, portfolio.Status)
		assert.NotEqual(t, uuid.Nil, portfolio.ID)
		assert.False(t, portfolio.CreatedAt.IsZero())
	})

	t.Run("requires a name", func(t *testing.T) {
		svc := NewPortfolioService(new(MockPortfolioRepository), logger.NewNop())
		_, err := svc.Create(ctx, CreatePortfolioRequest{})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}

func TestPortfolioServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only provided fields", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		existing := &entities.Portfolio{
			ID:           uuid.New(),
			Name:         "Old Name",
			Description:  "kept",
			BaseCurrency: "USD",
			Status:       entities.PortfolioStatusActive,
		}
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Update", ctx, existing).Return(nil)
		svc := NewPortfolioService(repo, logger.NewNop())

		name := "New Name"
		status := entities.PortfolioStatusArchived
		updated, err := svc.Update(ctx, existing.ID, UpdatePortfolioRequest{Name: &name, Status: &status})
		require.NoError(t, err)

		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, "kept", updated.Description)
		assert.Equal(t, entities.PortfolioStatusArchived, updated.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		existing := &entities.Portfolio{ID: uuid.New(), Name: "P"}
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
		svc := NewPortfolioService(repo, logger.NewNop())

		bad := entities.PortfolioStatus("FROZEN")
		_, err := svc.Update(ctx, existing.ID, UpdatePortfolioRequest{Status: &bad})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("missing portfolio", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		id := uuid.New()
		repo.On("GetByID", ctx, id).Return(nil, apperrors.NotFound("portfolio not found"))
		svc := NewPortfolioService(repo, logger.NewNop())

		_, err := svc.Update(ctx, id, UpdatePortfolioRequest{})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestPortfolioServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes existing", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		existing := &entities.Portfolio{ID: uuid.New(), Name: "P"}
		repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Delete", ctx, existing.ID).Return(nil)
		svc := NewPortfolioService(repo, logger.NewNop())

		require.NoError(t, svc.Delete(ctx, existing.ID))
		repo.AssertCalled(t, "Delete", ctx, existing.ID)
	})

	t.Run("missing portfolio", func(t *testing.T) {
		repo := new(MockPortfolioRepository)
		id := uuid.New()
		repo.On("GetByID", ctx, id).Return(nil, apperrors.NotFound("portfolio not found"))
		svc := NewPortfolioService(repo, logger.NewNop())

		err := svc.Delete(ctx, id)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

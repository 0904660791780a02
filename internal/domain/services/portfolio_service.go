package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/domain/repositories"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
)

// CreatePortfolioRequest carries the fields for a new portfolio.
type CreatePortfolioRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=255"`
	Description  string `json:"description" binding:"max=1000"`
	BaseCurrency string `json:"base_currency" binding:"omitempty,len=3"`
}

// UpdatePortfolioRequest carries the mutable portfolio fields. Nil fields are
// left unchanged.
type UpdatePortfolioRequest struct {
	Name        *string                   `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string                   `json:"description" binding:"omitempty,max=1000"`
	Status      *entities.PortfolioStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE ARCHIVED"`
}

// PortfolioService handles portfolio lifecycle operations
type PortfolioService struct {
	portfolioRepo repositories.PortfolioRepository
	logger        *logger.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(portfolioRepo repositories.PortfolioRepository, logger *logger.Logger) *PortfolioService {
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		logger:        logger,
	}
}

// Create creates a new active portfolio
func (s *PortfolioService) Create(ctx context.Context, req CreatePortfolioRequest) (*entities.Portfolio, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("portfolio name is required")
	}

	currency := req.BaseCurrency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	portfolio := &entities.Portfolio{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		BaseCurrency: currency,
		Status:       entities.PortfolioStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.portfolioRepo.Create(ctx, portfolio); err != nil {
		s.logger.Error("Failed to create portfolio", "error", err, "name", req.Name)
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	s.logger.Info("Created portfolio", "portfolio_id", portfolio.ID.String(), "name", portfolio.Name)
	return portfolio, nil
}

// Get retrieves a portfolio with its positions
func (s *PortfolioService) Get(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	return s.portfolioRepo.GetWithPositions(ctx, id)
}

// List returns all portfolios without positions
func (s *PortfolioService) List(ctx context.Context) ([]*entities.Portfolio, error) {
	return s.portfolioRepo.List(ctx)
}

// Update applies the non-nil fields of req to the portfolio
func (s *PortfolioService) Update(ctx context.Context, id uuid.UUID, req UpdatePortfolioRequest) (*entities.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.Validation("portfolio name cannot be empty")
		}
		portfolio.Name = *req.Name
	}
	if req.Description != nil {
		portfolio.Description = *req.Description
	}
	if req.Status != nil {
		switch *req.Status {
		case entities.PortfolioStatusActive, entities.PortfolioStatusInactive, entities.PortfolioStatusArchived:
			portfolio.Status = *req.Status
		default:
			return nil, apperrors.Validationf("unknown portfolio status: %s", *req.Status)
		}
	}
	portfolio.UpdatedAt = time.Now()

	if err := s.portfolioRepo.Update(ctx, portfolio); err != nil {
		s.logger.Error("Failed to update portfolio", "error", err, "portfolio_id", id.String())
		return nil, fmt.Errorf("update portfolio: %w", err)
	}

	return portfolio, nil
}

// Delete removes a portfolio and, through cascading constraints, its
// positions and risk history
func (s *PortfolioService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.portfolioRepo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.portfolioRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete portfolio", "error", err, "portfolio_id", id.String())
		return fmt.Errorf("delete portfolio: %w", err)
	}

	s.logger.Info("Deleted portfolio", "portfolio_id", id.String())
	return nil
}

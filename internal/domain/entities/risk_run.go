package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VarMethod selects the VaR estimation methodology for a run.
type VarMethod string

const (
	VarMethodHistorical VarMethod = "HISTORICAL"
	VarMethodParametric VarMethod = "PARAMETRIC"
	VarMethodMonteCarlo VarMethod = "MONTE_CARLO"
)

// Valid reports whether m is a known method.
func (m VarMethod) Valid() bool {
	switch m {
	case VarMethodHistorical, VarMethodParametric, VarMethodMonteCarlo:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a risk run. A run is created PENDING and
// transitions exactly once to a terminal state (COMPLETED or FAILED).
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Terminal reports whether s is a terminal status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RiskRun records one risk-calculation invocation. Immutable once terminal.
type RiskRun struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	PortfolioID         uuid.UUID        `json:"portfolio_id" db:"portfolio_id"`
	RunDate             time.Time        `json:"run_date" db:"run_date"`
	Method              VarMethod        `json:"var_method" db:"var_method"`
	ConfidenceLevel     decimal.Decimal  `json:"confidence_level" db:"confidence_level"`
	WindowSize          int              `json:"window_size" db:"window_size"`
	Simulations         int              `json:"simulations" db:"simulations"`
	Seed                int64            `json:"seed" db:"seed"`
	Var95               *decimal.Decimal `json:"var_95,omitempty" db:"var_95"`
	Var99               *decimal.Decimal `json:"var_99,omitempty" db:"var_99"`
	ExpectedShortfall95 *decimal.Decimal `json:"expected_shortfall_95,omitempty" db:"expected_shortfall_95"`
	ExpectedShortfall99 *decimal.Decimal `json:"expected_shortfall_99,omitempty" db:"expected_shortfall_99"`
	PortfolioValue      decimal.Decimal  `json:"portfolio_value" db:"portfolio_value"`
	PortfolioVolatility *decimal.Decimal `json:"portfolio_volatility,omitempty" db:"portfolio_volatility"`
	Status              RunStatus        `json:"status" db:"status"`
	ErrorMessage        string           `json:"error_message,omitempty" db:"error_message"`
	ExecutionTimeMs     int64            `json:"execution_time_ms" db:"execution_time_ms"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`

	// Breakdowns is populated by reads that join breakdown rows; not a db column.
	Breakdowns []*RiskBreakdown `json:"breakdowns,omitempty" db:"-"`
}

// RiskBreakdown attributes a slice of a run's total risk to one instrument.
// Rows are created atomically with the parent run's completion and never
// updated afterward; they are deleted with the run.
type RiskBreakdown struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RiskRunID       uuid.UUID       `json:"risk_run_id" db:"risk_run_id"`
	InstrumentID    uuid.UUID       `json:"instrument_id" db:"instrument_id"`
	Symbol          string          `json:"symbol" db:"symbol"`
	PositionValue   decimal.Decimal `json:"position_value" db:"position_value"`
	Weight          decimal.Decimal `json:"weight" db:"weight"`
	MarginalVar     decimal.Decimal `json:"marginal_var" db:"marginal_var"`
	ComponentVar    decimal.Decimal `json:"component_var" db:"component_var"`
	IndividualVar   decimal.Decimal `json:"individual_var" db:"individual_var"`
	Volatility      decimal.Decimal `json:"volatility" db:"volatility"`
	Beta            decimal.Decimal `json:"beta" db:"beta"`
	Correlation     decimal.Decimal `json:"correlation" db:"correlation"`
	ContributionPct decimal.Decimal `json:"contribution_pct" db:"contribution_pct"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

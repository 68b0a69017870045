// Package settings defines the typed configuration bundle for a backtest
// run. Every knob has a named field with a documented default; there is no
// dynamic key/value configuration.
package settings

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
)

// Settings configures one backtest run.
type Settings struct {
	// Account
	InitialCapital        float64 `mapstructure:"initial_capital" json:"initial_capital"`
	CommissionPerContract float64 `mapstructure:"commission_per_contract" json:"commission_per_contract"`

	// Risk limits
	MaxConcurrentPositions int     `mapstructure:"max_concurrent_positions" json:"max_concurrent_positions"`
	BuyingPowerReservePct  float64 `mapstructure:"buying_power_reserve_pct" json:"buying_power_reserve_pct"` // fraction of equity kept unreserved
	MaxDrawdownPct         float64 `mapstructure:"max_drawdown_pct" json:"max_drawdown_pct"`                 // halt entries past this equity drawdown
	DailyLossLimitPct      float64 `mapstructure:"daily_loss_limit_pct" json:"daily_loss_limit_pct"`

	// Position lifecycle
	MinDTE          int     `mapstructure:"min_dte" json:"min_dte"`
	MaxDTE          int     `mapstructure:"max_dte" json:"max_dte"`
	CloseDTE        int     `mapstructure:"close_dte" json:"close_dte"`
	ProfitTargetPct float64 `mapstructure:"profit_target_pct" json:"profit_target_pct"` // fraction of max credit/debit
	StopLossPct     float64 `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`

	// Liquidity screens
	MinOpenInterest int     `mapstructure:"min_open_interest" json:"min_open_interest"`
	MaxSpreadPct    float64 `mapstructure:"max_spread_pct" json:"max_spread_pct"`

	// Realism models
	EnableFillModel    bool    `mapstructure:"enable_fill_model" json:"enable_fill_model"`
	EnableGapModel     bool    `mapstructure:"enable_gap_model" json:"enable_gap_model"`
	GapStopBreachPct   float64 `mapstructure:"gap_stop_breach_pct" json:"gap_stop_breach_pct"` // loss fraction of credit past which a gapped stop costs extra
	VolIndexHighWater  float64 `mapstructure:"vol_index_high_water" json:"vol_index_high_water"`
	ContractQuantity   int     `mapstructure:"contract_quantity" json:"contract_quantity"`
	RandomSeed         int64   `mapstructure:"random_seed" json:"random_seed"`

	// Metrics
	RiskFreeRate        float64 `mapstructure:"risk_free_rate" json:"risk_free_rate"`
	AnnualizationFactor float64 `mapstructure:"annualization_factor" json:"annualization_factor"` // 252 for daily steps

	// Reporting
	LogCloudBacktest bool   `mapstructure:"log_cloud_backtest" json:"log_cloud_backtest"`
	LogLevel         string `mapstructure:"log_level" json:"log_level"`
}

// Default returns the documented defaults. Liquidity thresholds default to
// the fill model's hard gates; tests loosen them explicitly.
func Default() Settings {
	return Settings{
		InitialCapital:         100000,
		CommissionPerContract:  0.65,
		MaxConcurrentPositions: 1,
		BuyingPowerReservePct:  0.20,
		MaxDrawdownPct:         0.25,
		DailyLossLimitPct:      0.05,
		MinDTE:                 25,
		MaxDTE:                 50,
		CloseDTE:               7,
		ProfitTargetPct:        0.50,
		StopLossPct:            1.0,
		MinOpenInterest:        50,
		MaxSpreadPct:           10,
		EnableFillModel:        true,
		EnableGapModel:         true,
		GapStopBreachPct:       1.0,
		VolIndexHighWater:      30,
		ContractQuantity:       1,
		RandomSeed:             1,
		RiskFreeRate:           0.02,
		AnnualizationFactor:    252,
		LogLevel:               "info",
	}
}

// Load reads a JSON or YAML settings file and overlays it on the defaults.
// Missing optional fields keep their defaults; a missing or malformed file
// is fatal.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("load settings %v: %w", path, err)
	}
	var loaded Settings
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("load settings %v: %w", path, err)
	}
	merged := Default()
	if err := copier.CopyWithOption(&merged, &loaded, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("load settings %v: %w", path, err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate enforces the constraints required fields must satisfy. Called by
// Load; constructors taking a hand-built Settings should call it too.
func (s *Settings) Validate() error {
	if s.InitialCapital <= 0 {
		return fmt.Errorf("settings: initial_capital must be positive, got %v", s.InitialCapital)
	}
	if s.CommissionPerContract < 0 {
		return fmt.Errorf("settings: commission_per_contract cannot be negative")
	}
	if s.MaxConcurrentPositions < 1 {
		return fmt.Errorf("settings: max_concurrent_positions must be at least 1")
	}
	if s.MinDTE < 0 || s.MaxDTE < s.MinDTE {
		return fmt.Errorf("settings: need 0 <= min_dte <= max_dte, got [%v, %v]", s.MinDTE, s.MaxDTE)
	}
	if s.BuyingPowerReservePct < 0 || s.BuyingPowerReservePct >= 1 {
		return fmt.Errorf("settings: buying_power_reserve_pct must be in [0, 1)")
	}
	if s.ProfitTargetPct <= 0 {
		return fmt.Errorf("settings: profit_target_pct must be positive")
	}
	if s.StopLossPct <= 0 {
		return fmt.Errorf("settings: stop_loss_pct must be positive")
	}
	if s.ContractQuantity < 1 {
		return fmt.Errorf("settings: contract_quantity must be at least 1")
	}
	if s.AnnualizationFactor <= 0 {
		return fmt.Errorf("settings: annualization_factor must be positive")
	}
	return nil
}

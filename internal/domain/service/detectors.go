package service

import (
	"context"

	"SilverScan/internal/domain/models"
)

// LiquidityDetector finds repeated swing extremes within tolerance, breach-validated.
type LiquidityDetector interface {
	Detect(ctx context.Context, candles []models.Candle) ([]models.LiquidityPool, error)
}

// GapDetector finds three-bar fair value gaps inside the configured clock windows.
type GapDetector interface {
	Detect(ctx context.Context, candles []models.Candle) ([]models.FairValueGap, error)
}

// BlockDetector finds order blocks before displacements, ranked by strength.
type BlockDetector interface {
	Detect(ctx context.Context, candles []models.Candle) ([]models.OrderBlock, error)
}

// DecisionAgent maps one signal set to exactly one suggestion. Pure: no side
// effects, no state across calls, never fails.
type DecisionAgent interface {
	Decide(signals []models.Signal) models.Suggestion
}

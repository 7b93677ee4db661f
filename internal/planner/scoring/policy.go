package scoring

import (
	"fmt"
	"math"

	"github.com/Franelll/MaaS-sub000/internal/planner/domain"
	"github.com/Franelll/MaaS-sub000/internal/shared/config"
)

// Weights — веса измерений одного режима оптимизации, сумма равна 1.0
type Weights struct {
	Time      float64
	Cost      float64
	Comfort   float64
	Transfers float64
}

// Policy — именованная, переопределяемая конфигурация скоринга.
// Штрафы комфорта и таблицы весов — эмпирически подобранные константы,
// вынесены сюда, чтобы политика оставалась аудируемой и тестируемой
// отдельно от алгоритма отбора.
type Policy struct {
	MaxDurationSec  float64
	MaxCost         float64
	MaxWalkDistance float64
	MaxTransfers    int
	MaxResults      int

	ComfortPenalty map[domain.Mode]float64
	Weights        map[domain.OptimizeMode]Weights
}

// DefaultPolicy — значения по умолчанию из конфигурации по умолчанию
func DefaultPolicy() Policy {
	p, _ := PolicyFromConfig(config.ScoringConfig{
		MaxDurationSec:  7200,
		MaxCost:         50,
		MaxWalkDistance: 3000,
		MaxTransfers:    5,
		MaxResults:      5,
		ComfortPenalties: map[string]float64{
			"metro": 0.10, "rail": 0.15, "tram": 0.20,
			"taxi": 0.10, "car": 0.15, "bus": 0.30,
			"bike": 0.40, "scooter": 0.35, "walk": 0.50,
		},
		Weights: map[string]config.WeightsConfig{
			"fastest":     {Time: 0.60, Cost: 0.10, Comfort: 0.15, Transfers: 0.15},
			"cheapest":    {Time: 0.15, Cost: 0.55, Comfort: 0.15, Transfers: 0.15},
			"comfortable": {Time: 0.20, Cost: 0.10, Comfort: 0.45, Transfers: 0.25},
		},
	})
	return p
}

// PolicyFromConfig строит политику из секции scoring конфигурации
func PolicyFromConfig(cfg config.ScoringConfig) (Policy, error) {
	p := Policy{
		MaxDurationSec:  cfg.MaxDurationSec,
		MaxCost:         cfg.MaxCost,
		MaxWalkDistance: cfg.MaxWalkDistance,
		MaxTransfers:    cfg.MaxTransfers,
		MaxResults:      cfg.MaxResults,
		ComfortPenalty:  make(map[domain.Mode]float64, len(cfg.ComfortPenalties)),
		Weights:         make(map[domain.OptimizeMode]Weights, len(cfg.Weights)),
	}

	for mode, penalty := range cfg.ComfortPenalties {
		p.ComfortPenalty[domain.Mode(mode)] = penalty
	}

	for modeStr, w := range cfg.Weights {
		mode, err := domain.ParseOptimizeMode(modeStr)
		if err != nil {
			return Policy{}, fmt.Errorf("scoring weights: %w: %q", err, modeStr)
		}
		sum := w.Time + w.Cost + w.Comfort + w.Transfers
		if math.Abs(sum-1.0) > 1e-9 {
			return Policy{}, fmt.Errorf("scoring weights for %q sum to %g, want 1.0", modeStr, sum)
		}
		p.Weights[mode] = Weights{
			Time:      w.Time,
			Cost:      w.Cost,
			Comfort:   w.Comfort,
			Transfers: w.Transfers,
		}
	}

	for _, required := range []domain.OptimizeMode{
		domain.OptimizeFastest, domain.OptimizeCheapest, domain.OptimizeComfortable,
	} {
		if _, ok := p.Weights[required]; !ok {
			return Policy{}, fmt.Errorf("scoring weights missing mode %q", required)
		}
	}

	return p, nil
}

// WeightsFor возвращает таблицу весов режима
func (p Policy) WeightsFor(mode domain.OptimizeMode) (Weights, error) {
	w, ok := p.Weights[mode]
	if !ok {
		return Weights{}, domain.ErrUnknownMode
	}
	return w, nil
}

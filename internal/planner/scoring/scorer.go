// Package scoring ранжирует кандидатов-маршруты по многокритериальной
// политике: нормализованные оценки, стабильная сортировка и отбор
// разнообразного top-N по доминирующему режиму.
package scoring

import (
	"math"
	"sort"

	"github.com/Franelll/MaaS-sub000/internal/planner/domain"
)

// Scorer — чистый функциональный конвейер без разделяемого состояния;
// безопасен для конкурентных вызовов.
type Scorer struct {
	policy Policy
}

func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy}
}

// RankItineraries — полный конвейер: viability → score → rank → diversity.
// Пустой вход дает пустой выход на каждой стадии.
func (s *Scorer) RankItineraries(itins []domain.Itinerary, mode domain.OptimizeMode, maxResults int) ([]domain.ScoredItinerary, error) {
	if _, err := s.policy.WeightsFor(mode); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = s.policy.MaxResults
	}

	viable := s.FilterViable(itins)

	scored := make([]domain.ScoredItinerary, 0, len(viable))
	for _, it := range viable {
		sc, _ := s.ScoreItinerary(it, mode)
		scored = append(scored, domain.ScoredItinerary{Itinerary: it, Score: sc})
	}

	ranked := s.Rank(scored)
	return s.EnsureDiversity(ranked, maxResults), nil
}

// FilterViable отбрасывает кандидатов за пределами жизнеспособности:
// длительность > 1.5×потолка, пересадок больше потолка, пешком >
// 1.5×потолка. Относительный порядок остальных сохраняется.
func (s *Scorer) FilterViable(itins []domain.Itinerary) []domain.Itinerary {
	viable := make([]domain.Itinerary, 0, len(itins))
	for _, it := range itins {
		if it.DurationSec > 1.5*s.policy.MaxDurationSec {
			continue
		}
		if it.Transfers > s.policy.MaxTransfers {
			continue
		}
		if it.WalkDistanceM > 1.5*s.policy.MaxWalkDistance {
			continue
		}
		viable = append(viable, it)
	}
	return viable
}

// ScoreItinerary считает четыре нормализованных измерения и взвешенную
// итоговую оценку для режима. Все значения в [0,1], округлены до 3 знаков.
func (s *Scorer) ScoreItinerary(it domain.Itinerary, mode domain.OptimizeMode) (domain.Score, error) {
	w, err := s.policy.WeightsFor(mode)
	if err != nil {
		return domain.Score{}, err
	}

	timeScore := clamp01(1 - it.DurationSec/s.policy.MaxDurationSec)
	costScore := clamp01(1 - it.Cost/s.policy.MaxCost)
	comfortScore := s.comfortScore(it)
	transferScore := clamp01(1 - float64(it.Transfers)/float64(s.policy.MaxTransfers))

	timeScore = round3(timeScore)
	costScore = round3(costScore)
	comfortScore = round3(comfortScore)
	transferScore = round3(transferScore)

	overall := round3(w.Time*timeScore + w.Cost*costScore + w.Comfort*comfortScore + w.Transfers*transferScore)

	return domain.Score{
		Overall:   overall,
		Time:      timeScore,
		Cost:      costScore,
		Comfort:   comfortScore,
		Transfers: transferScore,
	}, nil
}

// comfortScore: стартуем с 1.0, вычитаем пер-модовые штрафы,
// взвешенные долей сегмента в длительности, штрафы за пешую дистанцию
// и ожидание, добавляем бонусы за отсутствие пересадок и метро.
// Нулевая длительность — дегенеративный, но валидный вход: 0 вместо
// деления на ноль.
func (s *Scorer) comfortScore(it domain.Itinerary) float64 {
	if it.DurationSec <= 0 {
		return 0
	}

	comfort := 1.0
	hasMetro := false
	for _, seg := range it.Segments {
		comfort -= s.policy.ComfortPenalty[seg.Mode] * (seg.DurationSec / it.DurationSec)
		if seg.Mode == domain.ModeMetro {
			hasMetro = true
		}
	}

	comfort -= math.Min(0.3, (it.WalkDistanceM/s.policy.MaxWalkDistance)*0.3)
	comfort -= math.Min(0.2, (it.WaitSec/it.DurationSec)*0.4)

	if it.Transfers == 0 {
		comfort += 0.10
	}
	if hasMetro {
		comfort += 0.05
	}

	return clamp01(comfort)
}

// Rank — стабильная сортировка по убыванию итоговой оценки; равные
// оценки сохраняют исходный относительный порядок.
func (s *Scorer) Rank(scored []domain.ScoredItinerary) []domain.ScoredItinerary {
	ranked := make([]domain.ScoredItinerary, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Overall > ranked[j].Score.Overall
	})
	return ranked
}

// EnsureDiversity отбирает не более maxCount: первый проход жадно берет
// по одному маршруту на доминирующий режим в порядке ранга, второй
// добирает оставшиеся слоты следующими по рангу. Порядок результата —
// исходный порядок ранга, не порядок отбора.
func (s *Scorer) EnsureDiversity(ranked []domain.ScoredItinerary, maxCount int) []domain.ScoredItinerary {
	if len(ranked) <= maxCount {
		return ranked
	}

	selected := make([]bool, len(ranked))
	count := 0

	seen := make(map[domain.Mode]struct{})
	for i, it := range ranked {
		if count == maxCount {
			break
		}
		m := it.DominantMode()
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		selected[i] = true
		count++
	}

	for i := range ranked {
		if count == maxCount {
			break
		}
		if selected[i] {
			continue
		}
		selected[i] = true
		count++
	}

	result := make([]domain.ScoredItinerary, 0, maxCount)
	for i, it := range ranked {
		if selected[i] {
			result = append(result, it)
		}
	}
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

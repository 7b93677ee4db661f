package domain

import (
	"github.com/Franelll/MaaS-sub000/internal/geo"
)

// MaxRadiusMeters — потолок радиусной подписки. Покрытие считается по
// bbox круга с шагом 0.01°, без потолка один subscribe на сотни
// километров перечислил бы миллионы ячеек под локом реестра.
const MaxRadiusMeters = 50_000

// Area — область интереса подписчика: либо bbox, либо center+radius,
// взаимоисключающе
type Area struct {
	BBox         *geo.BBox  `json:"bbox,omitempty"`
	Center       *geo.Point `json:"center,omitempty"`
	RadiusMeters float64    `json:"radiusMeters,omitempty"`
}

// Validate отклоняет область без формы, с двумя формами сразу
// и с координатами вне диапазона. Частичное состояние не создается.
func (a Area) Validate() error {
	switch {
	case a.BBox != nil && a.Center != nil:
		return ErrInvalidArea
	case a.BBox != nil:
		if !a.BBox.Valid() {
			return ErrInvalidCoordinates
		}
		return nil
	case a.Center != nil:
		if !a.Center.Valid() {
			return ErrInvalidCoordinates
		}
		if a.RadiusMeters <= 0 || a.RadiusMeters > MaxRadiusMeters {
			return ErrInvalidRadius
		}
		return nil
	default:
		return ErrInvalidArea
	}
}

// Contains — точный предикат области. Для радиуса считаем great-circle
// расстояние: покрывающие ячейки — грубый префильтр, настоящая зона
// радиусной подписки — круг, а не ячейки.
func (a Area) Contains(p geo.Point) bool {
	if a.BBox != nil {
		return a.BBox.Contains(p)
	}
	if a.Center != nil {
		return geo.Haversine(*a.Center, p) <= a.RadiusMeters
	}
	return false
}

// CoveredCells — ячейки, пересекающие область. Для радиусной подписки
// покрываем bbox описанного круга: сущность в соседней ячейке, но в
// пределах радиуса, обязана дойти до подписчика.
func (a Area) CoveredCells() []geo.CellKey {
	if a.BBox != nil {
		return geo.CellsCovering(*a.BBox)
	}
	if a.Center != nil {
		return geo.CellsCovering(geo.BoundingBoxAround(*a.Center, a.RadiusMeters))
	}
	return nil
}

// Subscription — подписка одного клиента. Cells — производное множество,
// не источник истины; инвариант: всегда равно CoveredCells текущей области.
type Subscription struct {
	ID        string
	Area      Area
	Types     map[EntityType]struct{}
	Providers map[string]struct{}
	Cells     map[geo.CellKey]struct{}
}

// NewSubscription валидирует область и строит подписку с покрытием ячеек
func NewSubscription(id string, area Area, types []EntityType, providers []string) (*Subscription, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:    id,
		Area:  area,
		Cells: make(map[geo.CellKey]struct{}),
	}
	if len(types) > 0 {
		sub.Types = make(map[EntityType]struct{}, len(types))
		for _, t := range types {
			sub.Types[t] = struct{}{}
		}
	}
	if len(providers) > 0 {
		sub.Providers = make(map[string]struct{}, len(providers))
		for _, p := range providers {
			sub.Providers[p] = struct{}{}
		}
	}
	for _, c := range area.CoveredCells() {
		sub.Cells[c] = struct{}{}
	}
	return sub, nil
}

// Matches — точная проверка: тип принят (пустой фильтр = все типы),
// провайдер принят (пустой фильтр = все провайдеры), локация в области
func (s *Subscription) Matches(e Entity) bool {
	if s.Types != nil {
		if _, ok := s.Types[e.Type]; !ok {
			return false
		}
	}
	if s.Providers != nil {
		if _, ok := s.Providers[e.Provider]; !ok {
			return false
		}
	}
	return s.Area.Contains(e.Location)
}

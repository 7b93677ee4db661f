package domain

// Mode — транспортный режим одного сегмента
type Mode string

const (
	ModeWalk    Mode = "walk"
	ModeBus     Mode = "bus"
	ModeTram    Mode = "tram"
	ModeMetro   Mode = "metro"
	ModeRail    Mode = "rail"
	ModeScooter Mode = "scooter"
	ModeBike    Mode = "bike"
	ModeTaxi    Mode = "taxi"
	ModeCar     Mode = "car"
)

// Segment — одно плечо маршрута на одном режиме. Неизменяем.
type Segment struct {
	Mode        Mode    `json:"mode"`
	DurationSec float64 `json:"duration"`
	DistanceM   float64 `json:"distance,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

// Itinerary — один кандидат поездки от внешнего routing-движка.
// После получения не мутируется.
type Itinerary struct {
	ID            string    `json:"id"`
	Segments      []Segment `json:"segments"`
	DurationSec   float64   `json:"duration"`
	Cost          float64   `json:"cost"`
	WalkDistanceM float64   `json:"walkDistance"`
	Transfers     int       `json:"transfers"`
	WaitSec       float64   `json:"waitTime"`
}

// DominantMode — не-пешеходный сегмент с наибольшей длительностью;
// walk, если других нет. Ключ разнообразия при отборе top-N.
func (it Itinerary) DominantMode() Mode {
	dominant := ModeWalk
	best := -1.0
	for _, s := range it.Segments {
		if s.Mode == ModeWalk {
			continue
		}
		if s.DurationSec > best {
			best = s.DurationSec
			dominant = s.Mode
		}
	}
	return dominant
}

// Score — производные, пересчитываемые данные; никогда не источник истины.
// Все компоненты в [0,1], округлены до 3 знаков.
type Score struct {
	Overall   float64 `json:"overall"`
	Time      float64 `json:"time"`
	Cost      float64 `json:"cost"`
	Comfort   float64 `json:"comfort"`
	Transfers float64 `json:"transfers"`
}

// ScoredItinerary — маршрут с прикрепленной оценкой
type ScoredItinerary struct {
	Itinerary
	Score Score `json:"score"`
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/geo"
)

// EntityType — тип сущности мобильности
type EntityType string

const (
	EntityScooter     EntityType = "scooter"
	EntityBike        EntityType = "bike"
	EntityEBike       EntityType = "ebike"
	EntityCar         EntityType = "car"
	EntityBusRealtime EntityType = "bus_realtime"
	EntityTramRT      EntityType = "tram_realtime"
	EntityStation     EntityType = "station"
	EntityTransitStop EntityType = "transit_stop"
)

// Category — исходящий канал сообщений для типа сущности
type Category string

const (
	CategoryVehicles Category = "vehicles"
	CategoryStations Category = "stations"
	CategoryTransit  Category = "transit"
)

// Category определяет, в какое из исходящих сообщений попадает сущность:
// vehicles_update, stations_update или transit_update
func (t EntityType) Category() Category {
	switch t {
	case EntityStation:
		return CategoryStations
	case EntityBusRealtime, EntityTramRT, EntityTransitStop:
		return CategoryTransit
	default:
		return CategoryVehicles
	}
}

// Entity — нормализованная сущность от коннектора-инжестора.
// Создается целиком на каждом цикле опроса, никогда не мутируется частично.
type Entity struct {
	ID        string          `json:"id"`
	Type      EntityType      `json:"type"`
	Provider  string          `json:"provider"`
	Location  geo.Point       `json:"location"`
	UpdatedAt time.Time       `json:"updated_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Batch — батч сущностей одного провайдера, как он приходит из очереди
type Batch struct {
	ProviderID string   `json:"providerId"`
	Entities   []Entity `json:"entities"`
}

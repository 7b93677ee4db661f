package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/ports/out"
	"github.com/Franelll/MaaS-sub000/internal/stream/broadcast"
	"github.com/Franelll/MaaS-sub000/internal/stream/debounce"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
	"github.com/Franelll/MaaS-sub000/internal/stream/registry"
)

// SubscribeAreaPayload — входящее subscribe_area
type SubscribeAreaPayload struct {
	BBox         *geo.BBox           `json:"bbox,omitempty"`
	Center       *geo.Point          `json:"center,omitempty"`
	RadiusMeters float64             `json:"radiusMeters,omitempty"`
	EntityTypes  []domain.EntityType `json:"entityTypes,omitempty"`
	Providers    []string            `json:"providers,omitempty"`
}

// UpdateLocationPayload — входящее update_location
type UpdateLocationPayload struct {
	BBox         *geo.BBox  `json:"bbox,omitempty"`
	Center       *geo.Point `json:"center,omitempty"`
	RadiusMeters float64    `json:"radiusMeters,omitempty"`
}

// updateMessage — исходящее vehicles_update / stations_update / transit_update
type updateMessage struct {
	Type       string          `json:"type"`
	ProviderID string          `json:"providerId"`
	Timestamp  string          `json:"timestamp"`
	Count      int             `json:"count"`
	Vehicles   []domain.Entity `json:"vehicles,omitempty"`
	Stations   []domain.Entity `json:"stations,omitempty"`
	Transit    []domain.Entity `json:"transit,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamService связывает реестр подписок, broadcast router и доставку:
// входящие события клиентов с одной стороны, батчи инжеста с другой.
type StreamService struct {
	reg       *registry.Registry
	router    *broadcast.Router
	store     out.EntityStore
	notifier  out.SubscriberNotifier
	debouncer *debounce.Debouncer
	log       *logger.Logger
}

func NewStreamService(
	reg *registry.Registry,
	store out.EntityStore,
	notifier out.SubscriberNotifier,
	debounceWindow time.Duration,
	log *logger.Logger,
) *StreamService {
	s := &StreamService{
		reg:      reg,
		router:   broadcast.NewRouter(reg),
		store:    store,
		notifier: notifier,
		log:      log,
	}
	s.debouncer = debounce.New(debounceWindow, s.applyAreaUpdate)
	return s
}

// HandleMessage обрабатывает входящее ws-сообщение подписчика.
// Невалидный payload дает исходящее error {message}, состояние не меняется.
func (s *StreamService) HandleMessage(ctx context.Context, subscriberID, msgType string, data json.RawMessage) error {
	switch msgType {
	case "subscribe_area":
		return s.handleSubscribe(ctx, subscriberID, data)
	case "update_location":
		return s.handleUpdateLocation(subscriberID, data)
	case "unsubscribe_area":
		s.handleUnsubscribe(subscriberID)
		return nil
	default:
		s.sendError(subscriberID, fmt.Sprintf("unknown message type: %s", msgType))
		return nil
	}
}

func (s *StreamService) handleSubscribe(ctx context.Context, subscriberID string, data json.RawMessage) error {
	var p SubscribeAreaPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError(subscriberID, "malformed subscribe_area payload")
		return fmt.Errorf("parse subscribe_area: %w", err)
	}

	area := domain.Area{BBox: p.BBox, Center: p.Center, RadiusMeters: p.RadiusMeters}
	if err := s.reg.Subscribe(subscriberID, area, p.EntityTypes, p.Providers); err != nil {
		s.sendError(subscriberID, err.Error())
		return nil
	}

	s.log.WithSubscriber("", subscriberID).Info(logger.Entry{
		Action:     "area_subscribed",
		Message:    "subscription stored",
		Additional: map[string]any{"cells": len(s.reg.CellsOf(subscriberID))},
	})

	s.notifier.SendJSON(subscriberID, map[string]any{
		"type":  "area_subscribed",
		"cells": len(s.reg.CellsOf(subscriberID)),
	})

	// Начальный снимок области из store, чтобы клиент не ждал
	// следующего цикла инжеста
	s.sendSnapshot(ctx, subscriberID, area)
	return nil
}

func (s *StreamService) handleUpdateLocation(subscriberID string, data json.RawMessage) error {
	var p UpdateLocationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError(subscriberID, "malformed update_location payload")
		return fmt.Errorf("parse update_location: %w", err)
	}

	area := domain.Area{BBox: p.BBox, Center: p.Center, RadiusMeters: p.RadiusMeters}
	if area.Center != nil && area.RadiusMeters <= 0 {
		// Радиус не прислали — наследуем от текущей радиусной подписки
		if sub := s.reg.Subscription(subscriberID); sub != nil && sub.Area.Center != nil {
			area.RadiusMeters = sub.Area.RadiusMeters
		}
	}
	if err := area.Validate(); err != nil {
		s.sendError(subscriberID, err.Error())
		return nil
	}

	// Коалесцируем всплески панорамирования: применится только последнее
	// значение в окне
	s.debouncer.Update(subscriberID, area)
	return nil
}

// applyAreaUpdate — срабатывание дебаунсера
func (s *StreamService) applyAreaUpdate(subscriberID string, area domain.Area) {
	if err := s.reg.UpdateArea(subscriberID, area); err != nil {
		s.sendError(subscriberID, err.Error())
		return
	}
	s.log.WithSubscriber("", subscriberID).Debug(logger.Entry{
		Action:     "area_updated",
		Message:    "subscription area recomputed",
		Additional: map[string]any{"cells": len(s.reg.CellsOf(subscriberID))},
	})
}

func (s *StreamService) handleUnsubscribe(subscriberID string) {
	s.debouncer.Cancel(subscriberID)
	s.reg.Unsubscribe(subscriberID)
	s.notifier.SendJSON(subscriberID, map[string]string{"type": "area_unsubscribed"})
	s.log.WithSubscriber("", subscriberID).Info(logger.Entry{
		Action:  "area_unsubscribed",
		Message: "subscription removed",
	})
}

// OnDisconnect — разрыв соединения: отмена отложенных обновлений и
// атомарное удаление из всех ячеек
func (s *StreamService) OnDisconnect(subscriberID string) {
	s.debouncer.Cancel(subscriberID)
	s.reg.Unsubscribe(subscriberID)
}

// Close останавливает дебаунсер
func (s *StreamService) Close() {
	s.debouncer.Close()
}

// HandleBatch — вход инжеста: обновляет снимок и раздает батч
// заинтересованным подписчикам. Ошибка store не мешает доставке.
func (s *StreamService) HandleBatch(ctx context.Context, batch domain.Batch) {
	if len(batch.Entities) == 0 {
		return
	}

	// Провайдер батча проставляется в сущности, если коннектор его опустил
	for i := range batch.Entities {
		if batch.Entities[i].Provider == "" {
			batch.Entities[i].Provider = batch.ProviderID
		}
	}

	if err := s.store.UpsertBatch(ctx, batch); err != nil {
		s.log.Error(logger.Entry{
			Action:  "entity_store_upsert_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"provider": batch.ProviderID,
				"entities": len(batch.Entities),
			},
		})
	}

	recipients := s.router.Route(batch.Entities)
	delivered := 0
	for subscriberID, entities := range recipients {
		if s.emitEntities(subscriberID, batch.ProviderID, entities) {
			delivered++
		}
	}

	s.log.Debug(logger.Entry{
		Action:  "batch_routed",
		Message: "entity batch fanned out",
		Additional: map[string]any{
			"provider":   batch.ProviderID,
			"entities":   len(batch.Entities),
			"recipients": len(recipients),
			"delivered":  delivered,
		},
	})
}

// emitEntities группирует сущности подписчика по категории и шлет
// vehicles_update / stations_update / transit_update. Доставка каждому
// подписчику изолирована: отказ одного не влияет на остальных.
func (s *StreamService) emitEntities(subscriberID, providerID string, entities []domain.Entity) bool {
	byCategory := make(map[domain.Category][]domain.Entity)
	for _, e := range entities {
		c := e.Type.Category()
		byCategory[c] = append(byCategory[c], e)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	sent := false
	for category, ents := range byCategory {
		msg := updateMessage{
			Type:       string(category) + "_update",
			ProviderID: providerID,
			Timestamp:  now,
			Count:      len(ents),
		}
		switch category {
		case domain.CategoryVehicles:
			msg.Vehicles = ents
		case domain.CategoryStations:
			msg.Stations = ents
		case domain.CategoryTransit:
			msg.Transit = ents
		}
		if s.notifier.SendJSON(subscriberID, msg) {
			sent = true
		}
	}
	return sent
}

// sendSnapshot отправляет текущее состояние области свежему подписчику
func (s *StreamService) sendSnapshot(ctx context.Context, subscriberID string, area domain.Area) {
	entities, err := s.store.ListInArea(ctx, area)
	if err != nil {
		s.log.Error(logger.Entry{
			Action:       "snapshot_load_failed",
			Message:      err.Error(),
			Error:        &logger.ErrObj{Msg: err.Error()},
			SubscriberID: subscriberID,
		})
		return
	}

	// Точный фильтр подписки поверх области (типы и провайдеры)
	byProvider := make(map[string][]domain.Entity)
	for _, e := range entities {
		if s.reg.Matches(subscriberID, e) {
			byProvider[e.Provider] = append(byProvider[e.Provider], e)
		}
	}
	for providerID, ents := range byProvider {
		s.emitEntities(subscriberID, providerID, ents)
	}
}

func (s *StreamService) sendError(subscriberID, message string) {
	s.notifier.SendJSON(subscriberID, errorMessage{Type: "error", Message: message})
}

package ws

import (
	sharedws "github.com/Franelll/MaaS-sub000/internal/shared/ws"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/ports/out"
)

// SubscriberNotifier — адаптер hub к порту доставки
type SubscriberNotifier struct {
	hub *sharedws.Hub
}

func NewSubscriberNotifier(hub *sharedws.Hub) out.SubscriberNotifier {
	return &SubscriberNotifier{hub: hub}
}

func (n *SubscriberNotifier) SendJSON(subscriberID string, data any) bool {
	return n.hub.SendJSONToSubscriber(subscriberID, data)
}

package out

// SubscriberNotifier доставляет исходящее сообщение подписчику.
// Отправка обязана быть неблокирующей: false — подписчик офлайн или
// его буфер полон (сообщение отброшено, не накапливается).
type SubscriberNotifier interface {
	SendJSON(subscriberID string, data any) bool
}

// Пакет ws — менеджер WebSocket соединений подписчиков.
//
// Hub регистрирует соединения, аутентифицирует их JWT-токеном первым
// сообщением и доставляет исходящие сообщения через ограниченный буфер
// на клиента: медленный или отвалившийся подписчик никогда не блокирует
// доставку остальным — лишнее сообщение отбрасывается и считается.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// authTimeout — клиент обязан прислать токен в течение 5 секунд
	authTimeout = 5 * time.Second

	// pingInterval / pongWait — поддержание соединения живым
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second

	// maxMessageSize — защита от слишком больших сообщений (8 KB)
	maxMessageSize = 8192

	// writeWait — таймаут на отправку одного сообщения
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить origin перед продом
		return true
	},
}

// AuthFunc валидирует токен и возвращает subscriberID и роль
type AuthFunc func(token string) (subscriberID, role string, err error)

// MessageHandler обрабатывает входящее сообщение клиента
type MessageHandler func(client *Client, messageType string, data json.RawMessage) error

// DisconnectHandler вызывается при разрыве соединения, после удаления
// клиента из hub
type DisconnectHandler func(subscriberID string)

// Client — одно WebSocket соединение
type Client struct {
	ID           string // уникальный ID соединения
	SubscriberID string // ID подписчика из JWT
	Role         string

	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	log     *logger.Logger
	dropped atomic.Int64 // сообщений отброшено из-за переполненного буфера
}

// Send — неблокирующая отправка: при полном буфере сообщение
// отбрасывается (drop-newest), соединение не трогаем
func (c *Client) Send(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		n := c.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			c.log.Warn(logger.Entry{
				Action:       "ws_send_dropped",
				Message:      "send buffer full, message dropped",
				SubscriberID: c.SubscriberID,
				Additional:   map[string]any{"client_id": c.ID, "dropped_total": n},
			})
		}
		return false
	}
}

// SendJSON сериализует и отправляет неблокирующе
func (c *Client) SendJSON(data any) bool {
	b, err := json.Marshal(data)
	if err != nil {
		c.log.Error(logger.Entry{
			Action:  "ws_marshal_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return false
	}
	return c.Send(b)
}

// Hub управляет всеми активными соединениями
type Hub struct {
	clients      map[string]*Client // client ID -> client
	bySubscriber map[string]*Client // subscriber ID -> client (последнее соединение)
	mu           sync.RWMutex

	register   chan *Client
	unregister chan *Client

	sendBuffer int

	authFunc          AuthFunc
	messageHandler    MessageHandler
	disconnectHandler DisconnectHandler

	log *logger.Logger
}

// NewHub создает hub; sendBuffer — емкость исходящего буфера клиента
func NewHub(authFunc AuthFunc, sendBuffer int, log *logger.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		clients:      make(map[string]*Client),
		bySubscriber: make(map[string]*Client),
		register:     make(chan *Client, 10),
		unregister:   make(chan *Client, 10),
		sendBuffer:   sendBuffer,
		authFunc:     authFunc,
		log:          log,
	}
}

// SetMessageHandler устанавливает обработчик входящих сообщений
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// SetDisconnectHandler устанавливает обработчик разрыва соединения
func (h *Hub) SetDisconnectHandler(handler DisconnectHandler) {
	h.disconnectHandler = handler
}

// Run запускает главный цикл хаба
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info(logger.Entry{Action: "hub_stopped", Message: "websocket hub stopped"})
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.bySubscriber[client.SubscriberID] = client
			h.mu.Unlock()
			h.log.Info(logger.Entry{
				Action:       "client_registered",
				Message:      client.ID,
				SubscriberID: client.SubscriberID,
				Additional:   map[string]any{"role": client.Role},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				if h.bySubscriber[client.SubscriberID] == client {
					delete(h.bySubscriber, client.SubscriberID)
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Info(logger.Entry{
				Action:       "client_unregistered",
				Message:      client.ID,
				SubscriberID: client.SubscriberID,
			})
			if h.disconnectHandler != nil {
				h.disconnectHandler(client.SubscriberID)
			}
		}
	}
}

// SendToSubscriber доставляет сообщение подписчику, если он подключен.
// Отправка неблокирующая; false — подписчик офлайн или буфер полон.
// RLock держим на всю отправку: unregister закрывает send-канал под
// write-локом, и отправка не должна пересечься с закрытием.
func (h *Hub) SendToSubscriber(subscriberID string, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.bySubscriber[subscriberID]
	if !ok {
		return false
	}
	return client.Send(message)
}

// SendJSONToSubscriber сериализует и доставляет подписчику
func (h *Hub) SendJSONToSubscriber(subscriberID string, data any) bool {
	b, err := json.Marshal(data)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_marshal_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return false
	}
	return h.SendToSubscriber(subscriberID, b)
}

// IsConnected проверяет, подключен ли подписчик
func (h *Hub) IsConnected(subscriberID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.bySubscriber[subscriberID]
	return ok
}

// ConnectedCount — число активных соединений
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS обрабатывает HTTP запрос на WebSocket соединение
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		hub:  h,
		log:  h.log,
	}

	// Дедлайн на аутентификацию: первое сообщение — токен
	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))

	var authMsg struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "auth timeout"))
		_ = conn.Close()
		h.log.Error(logger.Entry{
			Action:  "ws_auth_failed",
			Message: "no auth message received",
		})
		return
	}

	subscriberID, role, err := h.authFunc(authMsg.Token)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": "invalid token"})
		_ = conn.Close()
		h.log.Error(logger.Entry{
			Action:  "ws_auth_invalid_token",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	client.SubscriberID = subscriberID
	client.Role = role

	// Снимаем дедлайн, ставим нормальный pong wait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.register <- client

	_ = conn.WriteJSON(map[string]string{"status": "authenticated", "subscriber_id": subscriberID})

	go client.writePump()
	go client.readPump()
}

// readPump читает сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error(logger.Entry{
					Action:  "ws_read_error",
					Message: c.ID,
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
			}
			break
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Warn(logger.Entry{
				Action:       "ws_parse_message_error",
				Message:      err.Error(),
				SubscriberID: c.SubscriberID,
			})
			c.SendJSON(map[string]string{"type": "error", "message": "malformed message"})
			continue
		}

		if c.hub.messageHandler != nil {
			if err := c.hub.messageHandler(c, msg.Type, msg.Data); err != nil {
				c.log.Warn(logger.Entry{
					Action:       "ws_handle_message_error",
					Message:      err.Error(),
					SubscriberID: c.SubscriberID,
					Additional:   map[string]any{"msg_type": msg.Type},
				})
			}
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/goroutine"
	"github.com/taskdom/backend/internal/logger"
)

// NotificationSaver сохраняет отправленное событие как уведомление в БД.
type NotificationSaver interface {
	SaveNotification(ctx context.Context, userID uuid.UUID, kind string, taskID *uuid.UUID, text string) error
}

// Hub управляет всеми WebSocket клиентами.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	saver      NotificationSaver
	ctx        context.Context
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// eventPayload соответствует контракту WebSocket API: поле "type"
// содержит тип события, "data" — полезную нагрузку.
type eventPayload struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	TaskID *uuid.UUID `json:"task_id,omitempty"`
	Text   string     `json:"text"`
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
	}
}

// SetNotificationSaver устанавливает сервис для сохранения уведомлений.
func (h *Hub) SetNotificationSaver(saver NotificationSaver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saver = saver
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyUser отправляет событие во все соединения пользователя и
// сохраняет его как уведомление в БД.
func (h *Hub) NotifyUser(userID uuid.UUID, kind string, taskID *uuid.UUID, text string) error {
	raw, err := json.Marshal(eventPayload{
		Type: kind,
		Data: eventData{TaskID: taskID, Text: text},
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	h.mu.RLock()
	saver := h.saver
	ctx := h.ctx
	h.mu.RUnlock()

	if saver != nil {
		// Сохраняем асинхронно, чтобы не блокировать отправку.
		goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
			if err := saver.SaveNotification(ctx, userID, kind, taskID, text); err != nil {
				logger.Log.Errorf("ws: не удалось сохранить уведомление: %v", err)
			}
		})
	}

	h.broadcast <- message{userID: userID, payload: raw}
	return nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: закрываем соединение, не блокируя остальных.
			c := client
			goroutine.SafeGo(func() {
				c.Close()
			})
		}
	}
}

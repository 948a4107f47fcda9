package ws

// ClientMsg são os comandos aceitos do cliente WebSocket
type ClientMsg struct {
	Type   string `json:"type"` // "subscribe" | "unsubscribe" | "ping"
	UserID string `json:"userId"`
}

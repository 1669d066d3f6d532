package ws

import "time"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type string `json:"type"` // subscribe | unsubscribe | ping
}

// DrawUpdate representa um sorteio liquidado enviado para clientes WebSocket.
// Espelha o payload publicado no canal de broadcast pelo settlement-worker.
type DrawUpdate struct {
	CorrelationID int64     `json:"correlation_id"`
	DrawnNumbers  []int     `json:"drawn_numbers"` // []int para serializar como array JSON
	Ts            time.Time `json:"ts"`
}

package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/domain"
)

// Publisher is the fan-out capability the sync protocol is written against.
// Publish targets every connection in a room, PublishTo exactly one
// connection, PublishGlobal every bound connection (the out-of-room side
// channel dashboards listen on). Implementations must not block.
type Publisher interface {
	Publish(roomID domain.RoomID, event string, payload any)
	PublishTo(sid SessionID, event string, payload any)
	PublishGlobal(event string, payload any)
}

// Envelope is the wire framing of every outbound event.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// registryPublisher delivers events over the live connections held by the
// Registry. Sends are non-blocking; a connection with a full send buffer
// drops the frame and relies on the next broadcast to reconverge.
type registryPublisher struct {
	reg *Registry
}

func NewPublisher(reg *Registry) Publisher {
	return &registryPublisher{reg: reg}
}

func (p *registryPublisher) Publish(roomID domain.RoomID, event string, payload any) {
	frame, ok := marshalEnvelope(event, payload)
	if !ok {
		return
	}
	sent, dropped := 0, 0
	for _, m := range p.reg.membersOfRoom(roomID) {
		if err := m.Conn.TrySend(frame); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.publisher").Str("room", string(roomID)).Str("event", event).Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast")
}

func (p *registryPublisher) PublishTo(sid SessionID, event string, payload any) {
	frame, ok := marshalEnvelope(event, payload)
	if !ok {
		return
	}
	p.reg.mu.RLock()
	e, found := p.reg.conns[sid]
	p.reg.mu.RUnlock()
	if !found {
		return
	}
	if err := e.conn.TrySend(frame); err != nil {
		log.Warn().Str("module", "app.publisher").Str("sid", string(sid)).Str("event", event).Msg("scoped send dropped")
	}
}

func (p *registryPublisher) PublishGlobal(event string, payload any) {
	frame, ok := marshalEnvelope(event, payload)
	if !ok {
		return
	}
	for _, m := range p.reg.allConns() {
		_ = m.Conn.TrySend(frame)
	}
}

func marshalEnvelope(event string, payload any) (Frame, bool) {
	b, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.publisher").Str("event", event).Msg("marshal envelope")
		return nil, false
	}
	return Frame(b), true
}

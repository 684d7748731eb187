package event

import (
	"encoding/json"
	"fmt"

	"github.com/camera6912/orb-trader/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvTick Type = iota + 1
	EvHeartbeat
)

func (t Type) String() string {
	switch t {
	case EvTick:
		return "TICK"
	case EvHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

// Event is the interface for all orchestrator inbox events.
// Seq is stamped by the orchestrator on receipt; producers leave it zero.
type Event interface {
	GetSeq() uint64
	SetSeq(seq uint64)
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64         { return e.Seq }
func (e *BaseEvent) SetSeq(seq uint64)      { e.Seq = seq }
func (e *BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// TickEvent is one trade print (or last-price update) from the market data feed.
type TickEvent struct {
	BaseEvent
	Symbol string      `json:"symbol"`
	Price  quant.Price `json:"price"`
	Size   int64       `json:"size"`
}

func (e *TickEvent) GetType() Type { return EvTick }

// HeartbeatEvent carries wall-clock time so scheduled transitions fire without ticks.
type HeartbeatEvent struct {
	BaseEvent
}

func (e *HeartbeatEvent) GetType() Type { return EvHeartbeat }

// NewHeartbeat creates a heartbeat at ts.
func NewHeartbeat(ts quant.TimeStamp) *HeartbeatEvent {
	return &HeartbeatEvent{BaseEvent: BaseEvent{Ts: ts}}
}

// Decode restores a journaled event from its type tag and JSON payload.
func Decode(t Type, payload []byte) (Event, error) {
	var ev Event
	switch t {
	case EvTick:
		ev = &TickEvent{}
	case EvHeartbeat:
		ev = &HeartbeatEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %s", t)
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", t, err)
	}
	return ev, nil
}

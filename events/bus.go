package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// The event bus carries the observable signals of the core: fee collections,
// consensus progress, staking and vesting activity. It is for cross-package
// observation (websocket feed, balance notifier), not for flow control
// inside an operation.

type EventType string

const (
	TransferExecuted  EventType = "TRANSFER_EXECUTED"
	FeeCollected      EventType = "FEE_COLLECTED"
	ActionProposed    EventType = "ACTION_PROPOSED"
	ActionConfirmed   EventType = "ACTION_CONFIRMED"
	ActionApplied     EventType = "ACTION_APPLIED"
	ValidatorAdded    EventType = "VALIDATOR_ADDED"
	ValidatorRemoved  EventType = "VALIDATOR_REMOVED"
	ValidatorSlashed  EventType = "VALIDATOR_SLASHED"
	Staked            EventType = "STAKED"
	Withdrawn         EventType = "WITHDRAWN"
	RewardsClaimed    EventType = "REWARDS_CLAIMED"
	TokensReleased    EventType = "TOKENS_RELEASED"
	Paused            EventType = "PAUSED"
	Unpaused          EventType = "UNPAUSED"
	BuybackExecuted   EventType = "BUYBACK_EXECUTED"
	UpgradeAuthorized EventType = "UPGRADE_AUTHORIZED"
)

// Event is one observable signal. Data carries a type-specific payload.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// FeeCollectedData is the payload of a FeeCollected event. Payee is empty
// for burned fees.
type FeeCollectedData struct {
	Payer   string `json:"payer"`
	Payee   string `json:"payee,omitempty"`
	Amount  int64  `json:"amount"`
	FeeKind string `json:"feeKind"`
}

// Bus is a typed publish/subscribe fan-out. Publishing never blocks the
// publisher; slow subscribers receive on their own goroutine.
type Bus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
	}
}

// Subscribe to a specific event type.
func (b *Bus) Subscribe(eventType EventType, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
}

// SubscribeAll receives every event regardless of type.
func (b *Bus) SubscribeAll(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, ch)
}

// Unsubscribe from an event type.
func (b *Bus) Unsubscribe(eventType EventType, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[eventType]
	for i, subscriber := range subscribers {
		if subscriber == ch {
			b.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
}

// UnsubscribeAll removes a channel registered with SubscribeAll.
func (b *Bus) UnsubscribeAll(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, subscriber := range b.all {
		if subscriber == ch {
			b.all = append(b.all[:i], b.all[i+1:]...)
			break
		}
	}
}

// Publish assigns the event an id and timestamp and fans it out.
func (b *Bus) Publish(eventType EventType, data interface{}) Event {
	evt := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[eventType] {
		go func(c chan Event) {
			c <- evt
		}(ch)
	}
	for _, ch := range b.all {
		go func(c chan Event) {
			c <- evt
		}(ch)
	}
	return evt
}

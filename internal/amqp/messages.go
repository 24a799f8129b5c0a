package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotAppliedMessage announces that a pushed snapshot replaced the
// remote store's state. Downstream consumers fetch the full state from
// the sync endpoint; the message only carries headline figures.
type SnapshotAppliedMessage struct {
	ExpenseCount int       `json:"expenseCount"`
	RevenueCents int64     `json:"revenueCents"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewSnapshotAppliedMessage(expenseCount int, revenueCents int64) *SnapshotAppliedMessage {
	return &SnapshotAppliedMessage{
		ExpenseCount: expenseCount,
		RevenueCents: revenueCents,
		Timestamp:    time.Now(),
	}
}

func (m *SnapshotAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotAppliedMessageFromJSON(data []byte) (*SnapshotAppliedMessage, error) {
	var msg SnapshotAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

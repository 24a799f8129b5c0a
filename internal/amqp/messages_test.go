package amqp

import (
	"testing"
	"time"
)

func TestSnapshotAppliedMessageRoundTrip(t *testing.T) {
	msg := NewSnapshotAppliedMessage(12, 500000)
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := SnapshotAppliedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.ExpenseCount != 12 || decoded.RevenueCents != 500000 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("timestamp drifted: %v vs %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestSnapshotAppliedMessageFromInvalidJSON(t *testing.T) {
	if _, err := SnapshotAppliedMessageFromJSON([]byte(`{`)); err == nil {
		t.Error("expected error for malformed body")
	}
}

package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestSubjectIsScopedToGame(t *testing.T) {
	gameID := uuid.New()
	ev := ChangeEvent{GameID: gameID}

	want := "game.events." + gameID.String()
	if got := ev.Subject(); got != want {
		t.Fatalf("expected subject %q, got %q", want, got)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	ev := ChangeEvent{
		ID:        uuid.New(),
		GameID:    uuid.New(),
		Table:     TablePlayerMemberships,
		Operation: OpUpdate,
		RowAfter:  json.RawMessage(`{"is_ready":true}`),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GameID != ev.GameID {
		t.Fatalf("expected game id %s, got %s", ev.GameID, got.GameID)
	}
	if got.Operation != OpUpdate {
		t.Fatalf("expected operation update, got %s", got.Operation)
	}
}

func TestDecodeRejectsUnusablePayloads(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "not json at all"},
		{name: "missing game id", data: `{"operation":"insert"}`},
		{name: "unknown operation", data: `{"game_id":"` + uuid.NewString() + `","operation":"truncate"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Fatal("expected decode error, got nil")
			}
		})
	}
}

package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ChangeEvent
		ok      bool
	}{
		{"full", "tasks:UPDATE:6f1c", ChangeEvent{Table: "tasks", Operation: "UPDATE", ID: "6f1c"}, true},
		{"without id", "projects:DELETE", ChangeEvent{Table: "projects", Operation: "DELETE"}, true},
		{"missing operation", "projects", ChangeEvent{}, false},
		{"empty table", ":INSERT:1", ChangeEvent{}, false},
		{"empty", "", ChangeEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePayload(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ps := NewPubSub("postgresql://localhost/unused")
	defer ps.cancel()

	var first, second []ChangeEvent
	unsubscribe := ps.Subscribe(func(e ChangeEvent) { first = append(first, e) })
	ps.Subscribe(func(e ChangeEvent) { second = append(second, e) })

	ps.publish(ChangeEvent{Table: "files", Operation: "INSERT", ID: "1"})
	unsubscribe()
	ps.publish(ChangeEvent{Operation: OperationReload})

	require.Len(t, first, 1)
	assert.Equal(t, "files", first[0].Table)
	require.Len(t, second, 2)
	assert.Equal(t, OperationReload, second[1].Operation)
}

func TestChangeEventVisibility(t *testing.T) {
	audit := ChangeEvent{Table: "activity_logs", Operation: "INSERT", ID: "1"}
	assert.False(t, audit.VisibleTo(false))
	assert.True(t, audit.VisibleTo(true))

	tasks := ChangeEvent{Table: "tasks", Operation: "UPDATE", ID: "2"}
	assert.True(t, tasks.VisibleTo(false))
}

package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-coach/internal/model"
)

func TestDispatchRoutesByTaskName(t *testing.T) {
	w := NewTaskWorker(nil, "tasks")

	var got json.RawMessage
	w.Register("greet", func(ctx context.Context, payload json.RawMessage) error {
		got = payload
		return nil
	})

	err := w.dispatch(context.Background(), model.Task{
		Name:    "greet",
		Payload: json.RawMessage(`{"who":"world"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"who":"world"}`, string(got))
}

func TestDispatchUnknownTask(t *testing.T) {
	w := NewTaskWorker(nil, "tasks")

	err := w.dispatch(context.Background(), model.Task{Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTask)
}

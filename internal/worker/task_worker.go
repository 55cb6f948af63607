package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"brainstorm-coach/internal/model"
)

var ErrUnknownTask = errors.New("unknown task")

// Handler processes one task payload. A returned error requeues the delivery.
type Handler func(ctx context.Context, payload json.RawMessage) error

// TaskWorker consumes the durable task queue and dispatches deliveries to
// registered handlers by task name.
type TaskWorker struct {
	conn      *amqp.Connection
	queueName string
	handlers  map[string]Handler
}

func NewTaskWorker(conn *amqp.Connection, queueName string) *TaskWorker {
	return &TaskWorker{
		conn:      conn,
		queueName: queueName,
		handlers:  make(map[string]Handler),
	}
}

func (w *TaskWorker) Register(taskName string, handler Handler) {
	w.handlers[taskName] = handler
}

// Run consumes until the context is canceled or the channel closes.
func (w *TaskWorker) Run(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare task queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set channel qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume task queue failed: %w", err)
	}

	log.Printf("task worker consuming queue %q", w.queueName)
	for {
		select {
		case <-ctx.Done():
			log.Println("task worker stopping")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("task queue channel closed")
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *TaskWorker) handle(ctx context.Context, delivery amqp.Delivery) {
	var task model.Task
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		log.Printf("discarding malformed task: %v", err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := w.dispatch(ctx, task); err != nil {
		if errors.Is(err, ErrUnknownTask) {
			log.Printf("discarding task %q: %v", task.Name, err)
			_ = delivery.Nack(false, false)
			return
		}
		log.Printf("task %q failed, requeueing: %v", task.Name, err)
		_ = delivery.Nack(false, true)
		return
	}

	log.Printf("task %q completed", task.Name)
	_ = delivery.Ack(false)
}

func (w *TaskWorker) dispatch(ctx context.Context, task model.Task) error {
	handler, ok := w.handlers[task.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, task.Name)
	}
	return handler(ctx, task.Payload)
}

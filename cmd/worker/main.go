package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"brainstorm-coach/internal/bootstrap"
	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
	"brainstorm-coach/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	noteRepo := repository.NewNoteRepository(app.DB)
	noteProcessor := worker.NewNoteProcessor(noteRepo, time.Second)

	taskWorker := worker.NewTaskWorker(app.MQConn, app.Config.RabbitMQ.TaskQueue)
	taskWorker.Register(model.TaskProcessNote, noteProcessor.Handle)

	if err := taskWorker.Run(ctx); err != nil {
		log.Fatalf("task worker failed: %v", err)
	}
	log.Println("worker stopped")
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/repository"
)

// TranscriptWorker consumes archived conversation messages from the queue
// and persists them to MySQL.
type TranscriptWorker struct {
	conn      *amqp.Connection
	repo      *repository.TranscriptRepository
	queueName string
	log       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptWorker(conn *amqp.Connection, repo *repository.TranscriptRepository, queueName string, log *slog.Logger) *TranscriptWorker {
	return &TranscriptWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		log:       log,
	}
}

func (w *TranscriptWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
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
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var msg model.TranscriptMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					w.log.Error("worker decode transcript failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&msg); err != nil {
					w.log.Error("worker persist transcript failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TranscriptWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Package submissions feeds recycling submissions published by the collection points into the ledger.
//
// Messages are read from a Kafka topic by one producer, recorded by a pool of workers and
// committed in fetch order, so a crash never skips a message that was not recorded yet.
// A submission failing for infrastructure reasons is retried until it is recorded, it is
// never committed unrecorded.
// Redelivered messages are harmless: every message carries the entry id and duplicates are ignored.
package submissions

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
)

const (
	defaultCountWorkers  = 4
	defaultAlertAttempts = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 30 * time.Second
	defaultCommitWait    = 5 * time.Second

	DefaultGroupID = "greenpoints-ledger"
)

// Kafka reader with a consumer group satisfies it
type source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type submitter interface {
	Submit(ctx context.Context, sub recycling.Submission) (recycling.Result, error)
}

type Config struct {
	// Number of workers recording submissions concurrently
	CountWorkers int

	// A submission that failed for infrastructure reasons is retried with growing delays
	// from RetryDelay up to MaxRetryDelay until it is recorded or the processor stops
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// Failed attempts after which every further failure is logged as an error
	AlertAttempts int
}

// Message fetched from the topic, seq is the fetch order
type job struct {
	seq uint64
	msg kafka.Message
}

type Processor struct {
	producer  *Producer
	consumer  *Consumer
	committer *Committer
	logger    logger.Logger
}

func New(cfg Config, src source, submitter submitter, l logger.Logger) *Processor {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.AlertAttempts <= 0 {
		cfg.AlertAttempts = defaultAlertAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	cfg.MaxRetryDelay = max(cfg.MaxRetryDelay, cfg.RetryDelay)

	return &Processor{
		producer: &Producer{
			src:    src,
			logger: l,
		},
		consumer: &Consumer{
			countWorkers:  cfg.CountWorkers,
			alertAttempts: cfg.AlertAttempts,
			retryDelay:    cfg.RetryDelay,
			maxRetryDelay: cfg.MaxRetryDelay,
			submitter:     submitter,
			logger:        l,
		},
		committer: &Committer{
			src:    src,
			wait:   defaultCommitWait,
			logger: l,
		},
		logger: l,
	}
}

// Process runs until ctx is done. The returned channel is closed when everything stopped
// and the recorded messages are committed
func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	jobs := make(chan job)
	done := make(chan job, p.consumer.countWorkers)

	producerStopped := p.producer.Produce(ctx, jobs)
	consumerStopped := p.consumer.Consume(ctx, jobs, done)
	committerStopped := p.committer.Commit(ctx, done)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(jobs)
		<-consumerStopped
		close(done)
		<-committerStopped
		p.logger.Debug("Submissions processor stopped")
	}()

	return idleStopped
}

// NewKafkaReader returns reader of the submissions topic within the ledger consumer group
func NewKafkaReader(brokers []string, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})
}

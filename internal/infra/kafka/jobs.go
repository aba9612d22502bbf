package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	headerTraceID      = "trace_id"
	headerAttemptCount = "attempt_count"
	headerError        = "error"
)

type envelopeMetadata map[string]string

// jobEnvelope is the wire format of notification jobs on both topics.
type jobEnvelope struct {
	Version  string                 `json:"version"`
	Job      domain.NotificationJob `json:"job"`
	Error    string                 `json:"error,omitempty"`
	Metadata envelopeMetadata       `json:"metadata,omitempty"`
	SentAt   time.Time              `json:"sent_at"`
}

// JobPublisher submits notification jobs and dead-letters exhausted ones.
type JobPublisher struct {
	producer        *Producer
	topic           string
	deadLetterTopic string
	appCfg          config.AppSettings
	logger          *zap.Logger
	now             func() time.Time
}

// NewJobPublisher constructs a Kafka-backed job queue.
func NewJobPublisher(producer *Producer, kafkaCfg config.KafkaSettings, appCfg config.AppSettings, logger *zap.Logger) *JobPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobPublisher{
		producer:        producer,
		topic:           kafkaCfg.NotificationsTopic(),
		deadLetterTopic: kafkaCfg.DeadLetterTopic(),
		appCfg:          appCfg,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the job keyed by its id. The returned task id is the job id.
func (p *JobPublisher) Submit(ctx context.Context, job domain.NotificationJob) (string, error) {
	msg, err := p.message(ctx, p.topic, job, nil)
	if err != nil {
		return "", err
	}
	if err := p.producer.Send(msg); err != nil {
		return "", fmt.Errorf("submit notification job: %w", err)
	}
	return job.JobID, nil
}

// DeadLetter parks an exhausted job together with the last error.
func (p *JobPublisher) DeadLetter(ctx context.Context, job domain.NotificationJob, cause error) error {
	msg, err := p.message(ctx, p.deadLetterTopic, job, cause)
	if err != nil {
		return err
	}
	if err := p.producer.Send(msg); err != nil {
		return fmt.Errorf("dead-letter notification job: %w", err)
	}
	return nil
}

func (p *JobPublisher) message(ctx context.Context, topic string, job domain.NotificationJob, cause error) (*sarama.ProducerMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(headerAttemptCount), Value: []byte(strconv.Itoa(job.AttemptCount))},
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata[headerTraceID] = sc.TraceID().String()
		headers = append(headers, sarama.RecordHeader{Key: []byte(headerTraceID), Value: []byte(sc.TraceID().String())})
	}

	envelope := jobEnvelope{
		Version:  schemaVersion,
		Job:      job,
		Metadata: metadata,
		SentAt:   p.now(),
	}
	if cause != nil {
		envelope.Error = cause.Error()
		headers = append(headers, sarama.RecordHeader{Key: []byte(headerError), Value: []byte(cause.Error())})
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal job envelope: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(job.JobID),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}, nil
}

func decodeEnvelope(value []byte) (jobEnvelope, error) {
	var envelope jobEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return jobEnvelope{}, fmt.Errorf("decode job envelope: %w", err)
	}
	if envelope.Job.JobID == "" {
		return jobEnvelope{}, fmt.Errorf("decode job envelope: missing job id")
	}
	return envelope, nil
}

var (
	_ port.JobQueue       = (*JobPublisher)(nil)
	_ port.DeadLetterSink = (*JobPublisher)(nil)
)

// Package datasetfeed consumes the upstream dataset-change event stream
// and applies upserts/deletes to the local dataset projection. It adapts
// the shape of reva's pkg/events Consume/Publish helpers (a typed channel
// fed by a reflection-driven unmarshal-by-event-type loop) to a concrete
// Kafka consumer group.
package datasetfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
)

// EventTypeHeader is the Kafka message header carrying the event's type
// name, compared against the configured upsertion/deletion type strings.
const EventTypeHeader = "eventtype"

// upsertPayload is the upstream shape for a dataset upsert event: field
// names as produced by the upstream, per spec.md §6 (indicative, driven
// from this small adapter rather than assumed fixed across deployments).
type upsertPayload struct {
	Accession   string `json:"accession"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	Files       []struct {
		Accession     string `json:"accession"`
		FileExtension string `json:"file_extension"`
	} `json:"files"`
}

// deletePayload is the upstream shape for a dataset delete event.
type deletePayload struct {
	Accession string `json:"accession"`
}

func adaptUpsertPayload(raw []byte) (dataset.Dataset, error) {
	var p upsertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return dataset.Dataset{}, fmt.Errorf("datasetfeed: decoding upsert payload: %w", err)
	}

	files := make([]dataset.File, len(p.Files))
	for i, f := range p.Files {
		files[i] = dataset.File{ID: f.Accession, Extension: f.FileExtension}
	}

	return dataset.Dataset{
		ID:          p.Accession,
		Title:       p.Title,
		Description: p.Description,
		Stage:       dataset.WorkType(p.Stage),
		Files:       files,
	}, nil
}

func adaptDeletePayload(raw []byte) (string, error) {
	var p deletePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("datasetfeed: decoding delete payload: %w", err)
	}
	return p.Accession, nil
}

// Reader is the subset of *kafka.Reader the Subscriber needs, narrow
// enough to fake in tests.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetterWriter is the subset of *kafka.Writer used to move a message
// that exhausted its retry ceiling to a dead-letter topic.
type DeadLetterWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// defaultMaxRetries bounds in-process redelivery attempts before a message
// is moved to the dead-letter topic, per spec.md §4.F ("a dead-letter
// policy is configured externally"). The counter is process-local and
// resets on restart; a stricter at-least-once deployment is expected to
// pair this with its own broker-side retry/DLQ policy.
const defaultMaxRetries = 5

// Subscriber consumes dataset-change events and applies them to a
// dataset.Store. Handler errors are logged and the offset is left
// uncommitted, so the consumer group redelivers the message;
// re-delivery is idempotent (spec.md §4.F).
type Subscriber struct {
	reader       Reader
	store        dataset.Store
	upsertType   string
	deletionType string

	dlq        DeadLetterWriter
	dlqTopic   string
	maxRetries int
	retries    map[string]int
}

// New returns a Subscriber reading from reader and applying events to
// store, distinguishing upsert/delete by comparing the EventTypeHeader
// value against upsertType/deletionType.
func New(reader Reader, store dataset.Store, upsertType, deletionType string) *Subscriber {
	return &Subscriber{
		reader:       reader,
		store:        store,
		upsertType:   upsertType,
		deletionType: deletionType,
		maxRetries:   defaultMaxRetries,
		retries:      make(map[string]int),
	}
}

// WithDeadLetter configures dlq as the writer messages are moved to, on
// topic dlqTopic, once a message has failed maxRetries times.
func (s *Subscriber) WithDeadLetter(dlq DeadLetterWriter, dlqTopic string) *Subscriber {
	s.dlq = dlq
	s.dlqTopic = dlqTopic
	return s
}

// Run consumes messages until ctx is cancelled or the reader returns a
// fatal error. Each message is applied and committed on success, or
// committed once it has been moved to the dead-letter topic.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("datasetfeed: fetching message: %w", err)
		}

		if err := s.handle(ctx, msg); err != nil {
			key := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
			s.retries[key]++

			if s.dlq != nil && s.retries[key] >= s.maxRetries {
				if dlqErr := s.deadLetter(ctx, msg, err); dlqErr != nil {
					return fmt.Errorf("datasetfeed: dead-lettering message: %w", dlqErr)
				}
				delete(s.retries, key)
				if err := s.reader.CommitMessages(ctx, msg); err != nil {
					return fmt.Errorf("datasetfeed: committing dead-lettered offset: %w", err)
				}
				continue
			}

			appctx.GetLogger(ctx).Error().Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Int("attempt", s.retries[key]).
				Msg("datasetfeed: handler failed, leaving uncommitted for redelivery")
			continue
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("datasetfeed: committing offset: %w", err)
		}
	}
}

func (s *Subscriber) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	appctx.GetLogger(ctx).Error().Err(cause).
		Str("topic", msg.Topic).
		Int64("offset", msg.Offset).
		Msg("datasetfeed: retry ceiling reached, moving to dead-letter topic")

	dlqMsg := kafka.Message{
		Topic:   s.dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: msg.Headers,
	}
	return s.dlq.WriteMessages(ctx, dlqMsg)
}

func (s *Subscriber) handle(ctx context.Context, msg kafka.Message) error {
	eventType := headerValue(msg, EventTypeHeader)

	switch eventType {
	case s.upsertType:
		d, err := adaptUpsertPayload(msg.Value)
		if err != nil {
			return err
		}
		return s.store.Upsert(ctx, d)
	case s.deletionType:
		id, err := adaptDeletePayload(msg.Value)
		if err != nil {
			return err
		}
		return s.store.Delete(ctx, id)
	default:
		return fmt.Errorf("datasetfeed: unrecognized event type %q", eventType)
	}
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

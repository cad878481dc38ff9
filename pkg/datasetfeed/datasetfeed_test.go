package datasetfeed_test

import (
	"context"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	"github.com/bioarchive/workpkgsvc/pkg/datasetfeed"
)

type fakeReader struct {
	messages []kafka.Message
	pos      int
	commits  []kafka.Message
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if f.pos >= len(f.messages) {
		return kafka.Message{}, io.EOF
	}
	msg := f.messages[f.pos]
	f.pos++
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.commits = append(f.commits, msgs...)
	return nil
}

type fakeDatasetStore struct {
	datasets map[string]dataset.Dataset
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{datasets: make(map[string]dataset.Dataset)}
}

func (f *fakeDatasetStore) Upsert(_ context.Context, d dataset.Dataset) error {
	f.datasets[d.ID] = d
	return nil
}

func (f *fakeDatasetStore) Delete(_ context.Context, id string) error {
	delete(f.datasets, id)
	return nil
}

func (f *fakeDatasetStore) Get(_ context.Context, id string) (*dataset.Dataset, error) {
	d, ok := f.datasets[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func eventMessage(topic, eventType string, value []byte) kafka.Message {
	return kafka.Message{
		Topic:   topic,
		Headers: []kafka.Header{{Key: datasetfeed.EventTypeHeader, Value: []byte(eventType)}},
		Value:   value,
	}
}

func TestRunAppliesUpsertThenDeleteAndCommitsEach(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage("datasets", "dataset.upserted", []byte(`{"accession":"ds-1","title":"T","files":[{"accession":"f-1","file_extension":".cram"}]}`)),
		eventMessage("datasets", "dataset.deleted", []byte(`{"accession":"ds-1"}`)),
	}}
	store := newFakeDatasetStore()
	sub := datasetfeed.New(reader, store, "dataset.upserted", "dataset.deleted")

	err := sub.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, reader.commits, 2)

	got, err := store.Get(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRunAppliesUpsertAndCommitsOffset(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage("datasets", "dataset.upserted", []byte(`{"accession":"ds-1","title":"T","files":[{"accession":"f-1","file_extension":".cram"}]}`)),
	}}
	store := newFakeDatasetStore()
	sub := datasetfeed.New(reader, store, "dataset.upserted", "dataset.deleted")

	err := sub.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, reader.commits, 1)

	got, err := store.Get(context.Background(), "ds-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "T", got.Title)
	require.Equal(t, []dataset.File{{ID: "f-1", Extension: ".cram"}}, got.Files)
}

type fakeDLQ struct {
	written []kafka.Message
}

func (f *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.written = append(f.written, msgs...)
	return nil
}

func TestRunMovesAMessageToDeadLetterAfterExhaustingRetries(t *testing.T) {
	bad := eventMessage("datasets", "unknown.event", []byte(`{}`))
	bad.Partition = 1
	bad.Offset = 42

	// Five identical deliveries: redelivery is simulated within a single
	// Run call by a reader that keeps replaying the same message until the
	// retry ceiling is reached.
	reader := &repeatingReader{msg: bad, remaining: 5}
	store := newFakeDatasetStore()
	dlq := &fakeDLQ{}
	sub := datasetfeed.New(reader, store, "dataset.upserted", "dataset.deleted").WithDeadLetter(dlq, "datasets_dlq")

	err := sub.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)

	require.Len(t, dlq.written, 1)
	require.Equal(t, "datasets_dlq", dlq.written[0].Topic)
	require.Len(t, reader.commits, 1) // only the dead-lettered message is committed
}

// repeatingReader hands back the same message remaining times, simulating
// a handler failing on every redelivery until the retry ceiling trips.
type repeatingReader struct {
	msg       kafka.Message
	remaining int
	commits   []kafka.Message
}

func (r *repeatingReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if r.remaining <= 0 {
		return kafka.Message{}, io.EOF
	}
	r.remaining--
	return r.msg, nil
}

func (r *repeatingReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.commits = append(r.commits, msgs...)
	return nil
}

func TestRunStopsCleanlyOnContextCancellation(t *testing.T) {
	reader := &blockingReader{}
	store := newFakeDatasetStore()
	sub := datasetfeed.New(reader, store, "dataset.upserted", "dataset.deleted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sub.Run(ctx)
	require.NoError(t, err)
}

type blockingReader struct{}

func (blockingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, context.Canceled
}

func (blockingReader) CommitMessages(context.Context, ...kafka.Message) error {
	return nil
}

//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/adapter/kafka"
	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/config"
	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
	"github.com/couchcryptid/flare-heat-flux/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testReportTopic = "test-reports"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker for the lifetime of the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("flare-heat-flux-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedReport struct {
	Report  domain.Report
	Key     string
	Headers map[string]string
}

func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedReport {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var report domain.Report
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal report message")
	return publishedReport{Report: report, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterPublishesReport round-trips a report through a real broker.
func TestWriterPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	now := time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaReportTopic: testReportTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	report, err := domain.BuildReport(domain.DefaultInputs())
	require.NoError(t, err)
	require.NoError(t, writer.PublishReport(ctx, report))

	got := readReport(ctx, t, newConsumer(t, broker))
	assert.Equal(t, report.ID, got.Key)
	assert.Equal(t, report.ID, got.Headers["report_id"])
	assert.Equal(t, now.Format(time.RFC3339), got.Headers["computed_at"])
	assert.Equal(t, report.Inputs, got.Report.Inputs)
	assert.Len(t, got.Report.Curve, domain.DefaultSweep.Samples())
	d, ok := got.Report.SafeDistanceFor("safe")
	require.True(t, ok)
	assert.Equal(t, 5.6, d)
}

// TestSessionEditsArePublished wires session → calculator → writer and checks
// that only recomputations reach the topic; memoized reads do not.
func TestSessionEditsArePublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaReportTopic: testReportTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	calc := calculator.New(writer, discardLogger(), metrics)
	store := session.NewStore(session.StoreConfig{Capacity: 4, TTL: time.Hour}, calc, discardLogger(), metrics)
	t.Cleanup(store.Close)

	sess, err := store.Create()
	require.NoError(t, err)

	first, err := sess.Report(ctx)
	require.NoError(t, err)
	_, err = sess.Report(ctx) // memoized
	require.NoError(t, err)

	accepted, err := sess.Apply(session.FieldFlowRate, "300")
	require.NoError(t, err)
	require.True(t, accepted)
	second, err := sess.Report(ctx)
	require.NoError(t, err)

	consumer := newConsumer(t, broker)
	got := []publishedReport{readReport(ctx, t, consumer), readReport(ctx, t, consumer)}
	assert.Equal(t, first.ID, got[0].Report.ID)
	assert.Equal(t, second.ID, got[1].Report.ID)
	assert.Equal(t, 300.0, got[1].Report.Inputs.FlowRate)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReportsPublished.WithLabelValues("success")))

	// Nothing else was published.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third report")
}

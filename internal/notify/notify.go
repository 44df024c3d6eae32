// Package notify delivers user-facing toasts and submission summaries.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"form-connectors/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindDanger  Kind = "danger"
	KindWarning Kind = "warning"
)

type Notification struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink receives notifications. Implementations must not block for long.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

func Success(title, text string) Notification {
	return Notification{Kind: KindSuccess, Title: title, Text: text, CreatedAt: time.Now().UTC()}
}

func Danger(title, text string) Notification {
	return Notification{Kind: KindDanger, Title: title, Text: text, CreatedAt: time.Now().UTC()}
}

func Warning(title, text string) Notification {
	return Notification{Kind: KindWarning, Title: title, Text: text, CreatedAt: time.Now().UTC()}
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: logger.Component(log, "notify")}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	fields := map[string]interface{}{"kind": n.Kind, "title": n.Title, "text": n.Text}
	switch n.Kind {
	case KindDanger:
		s.logger.Error("notification", fields)
	case KindWarning:
		s.logger.Warn("notification", fields)
	default:
		s.logger.Info("notification", fields)
	}
}

// MemorySink queues notifications until they are drained.
type MemorySink struct {
	mu      sync.Mutex
	pending []Notification
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Notify(ctx context.Context, n Notification) {
	s.mu.Lock()
	s.pending = append(s.pending, n)
	s.mu.Unlock()
}

// Drain returns and clears the queued notifications, oldest first.
func (s *MemorySink) Drain() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// MultiSink fans a notification out to every sink.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// SNSPublisher is the part of the SNS client SNSSink uses.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink publishes notifications of the configured kinds to a topic as JSON.
type SNSSink struct {
	client   SNSPublisher
	topicARN string
	kinds    map[Kind]bool
	logger   logger.Logger
}

// NewSNSSink publishes every kind when kinds is empty.
func NewSNSSink(client SNSPublisher, topicARN string, log logger.Logger, kinds ...Kind) *SNSSink {
	s := &SNSSink{
		client:   client,
		topicARN: topicARN,
		logger:   logger.Component(log, "notify-sns"),
	}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	return s
}

func (s *SNSSink) Notify(ctx context.Context, n Notification) {
	if s.kinds != nil && !s.kinds[n.Kind] {
		return
	}
	body, err := json.Marshal(n)
	if err != nil {
		return
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(truncate(n.Title, 100)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(n.Kind))},
		},
	})
	if err != nil {
		s.logger.Warn("sns publish failed", map[string]interface{}{"topicArn": s.topicARN, "error": err.Error()})
	}
}

// truncate keeps at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

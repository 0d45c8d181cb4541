package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"ems/internal/domain/announcements"
)

const TypeAnnouncementPublished = "announcement.published"

// Writer is the subset of kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer Writer
}

// AnnouncementEvent is the payload written to the announcements topic.
type AnnouncementEvent struct {
	Type               string     `json:"type"`
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Message            string     `json:"message"`
	Priority           string     `json:"priority"`
	TargetAudience     string     `json:"targetAudience"`
	TargetDepartmentID string     `json:"targetDepartmentId,omitempty"`
	ExpiryDate         *time.Time `json:"expiryDate,omitempty"`
	PublishedAt        time.Time  `json:"publishedAt"`
}

// New returns nil when no brokers are configured.
func New(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return NewWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	})
}

func NewWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// PublishAnnouncement keys messages by target department so a department's
// announcements stay ordered within one partition.
func (p *Producer) PublishAnnouncement(ctx context.Context, a announcements.Announcement) error {
	payload, err := json.Marshal(AnnouncementEvent{
		Type:               TypeAnnouncementPublished,
		ID:                 a.ID,
		Title:              a.Title,
		Message:            a.Message,
		Priority:           a.Priority,
		TargetAudience:     a.TargetAudience,
		TargetDepartmentID: a.TargetDepartmentID,
		ExpiryDate:         a.ExpiryDate,
		PublishedAt:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	key := a.TargetDepartmentID
	if key == "" {
		key = announcements.AudienceAll
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeAnnouncementPublished)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Warn("kafka write failed", "err", err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

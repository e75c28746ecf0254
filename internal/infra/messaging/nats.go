// Package messaging publishes pipeline events on NATS.
//
// Subjects:
//   - <prefix>.deferred.<kind>: a record entered or re-entered the side-channel
//   - <prefix>.runs.completed: a run finished, whatever its status
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/resilience/circuitbreaker"

	"github.com/nats-io/nats.go"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "papertrail"

// MsgPublisher is the part of *nats.Conn the publisher uses.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Connect dials url and logs connection state changes.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Event is the JSON body of every message.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Deferred   *entity.DeferredRecord `json:"deferred,omitempty"`
	Run        *RunEvent              `json:"run,omitempty"`
}

// RunEvent is the digest of a finished run. Consumers fetch the full
// summary from the API.
type RunEvent struct {
	RunID      string                      `json:"run_id"`
	Status     entity.RunStatus            `json:"status"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt *time.Time                  `json:"finished_at,omitempty"`
	Stages     []string                    `json:"stages"`
	Loaded     map[string]map[string]int64 `json:"loaded"`
	Deferred   map[entity.ErrorKind]int64  `json:"deferred"`
	Error      string                      `json:"error,omitempty"`
}

// NATSPublisher implements pipeline.EventPublisher. Publishing goes through
// a circuit breaker so an unreachable server costs one fast error per event.
type NATSPublisher struct {
	conn   MsgPublisher
	prefix string
	cb     *circuitbreaker.CircuitBreaker
	now    func() time.Time
}

// NewNATSPublisher returns a publisher on conn. An empty prefix means
// DefaultPrefix.
func NewNATSPublisher(conn MsgPublisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		cb:     circuitbreaker.New(circuitbreaker.PublisherConfig()),
		now:    time.Now,
	}
}

// DeferredSubject returns the subject for records of kind.
func (p *NATSPublisher) DeferredSubject(kind entity.DeferredKind) string {
	return p.prefix + ".deferred." + strings.ToLower(string(kind))
}

// RunSubject returns the subject for finished runs.
func (p *NATSPublisher) RunSubject() string {
	return p.prefix + ".runs.completed"
}

func (p *NATSPublisher) PublishDeferred(ctx context.Context, rec *entity.DeferredRecord) error {
	event := Event{Type: "deferred", OccurredAt: p.now().UTC(), Deferred: rec}
	msgID := "deferred:" + string(rec.Kind) + ":" + rec.Ref().String() + ":" + strconv.Itoa(rec.Attempts)
	return p.publish(ctx, p.DeferredSubject(rec.Kind), msgID, event)
}

func (p *NATSPublisher) PublishRun(ctx context.Context, run *entity.RunSummary) error {
	totals := run.Totals()
	event := Event{
		Type:       "run_completed",
		OccurredAt: p.now().UTC(),
		Run: &RunEvent{
			RunID:      run.RunID,
			Status:     run.Status,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Stages:     run.StageNames(),
			Loaded:     totals.Loaded,
			Deferred:   totals.Deferred,
			Error:      run.Error,
		},
	}
	return p.publish(ctx, p.RunSubject(), "run:"+run.RunID+":"+string(run.Status), event)
}

func (p *NATSPublisher) publish(ctx context.Context, subject, msgID string, event Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, msgID)
	msg.Header.Set("Content-Type", "application/json")

	_, err = circuitbreaker.Call(p.cb, func() (struct{}, error) {
		return struct{}{}, p.conn.PublishMsg(msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when NATS_URL is unset and
// for dry runs.
type NopPublisher struct{}

func (NopPublisher) PublishDeferred(context.Context, *entity.DeferredRecord) error { return nil }
func (NopPublisher) PublishRun(context.Context, *entity.RunSummary) error         { return nil }

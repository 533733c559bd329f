/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package natsutil publishes and consumes equipment change events over NATS.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

const (
	EventSource          = "chemvis/server"
	EventTypeDataUpdated = "com.carverauto.chemvis.equipment.updated"
	specVersion          = "1.0"
)

var (
	errEmptySubject = errors.New("nats subject is required")
	errDecodeEvent  = errors.New("failed to decode event")
)

// Conn is the publishing half of *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

// EventPublisher publishes CloudEvents to a single subject.
type EventPublisher struct {
	conn    Conn
	subject string
	logger  logger.Logger
	now     func() time.Time
}

// NewEventPublisher creates a new EventPublisher for subject.
func NewEventPublisher(conn Conn, subject string, log logger.Logger) (*EventPublisher, error) {
	if subject == "" {
		return nil, errEmptySubject
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventPublisher{
		conn:    conn,
		subject: subject,
		logger:  log,
		now:     time.Now,
	}, nil
}

// PublishDataUpdated announces a stored upload session.
func (p *EventPublisher) PublishDataUpdated(ctx context.Context, entry models.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ts := p.now().UTC()

	event := models.CloudEvent{
		SpecVersion:     specVersion,
		ID:              uuid.New().String(),
		Source:          EventSource,
		Type:            EventTypeDataUpdated,
		DataContentType: "application/json",
		Subject:         p.subject,
		Time:            &ts,
		Data: models.UploadEventData{
			SessionID:  entry.ID,
			Filename:   entry.Filename,
			ItemCount:  entry.ItemCount,
			UploadDate: entry.UploadDate,
		},
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal data updated event: %w", err)
	}

	if err := p.conn.Publish(p.subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish data updated event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", p.subject).
		Int64("session_id", entry.ID).
		Msg("Published data updated event")

	return nil
}

// DecodeEvent parses a CloudEvent whose data is an upload session.
func DecodeEvent(data []byte) (models.CloudEvent, models.UploadEventData, error) {
	var (
		payload models.UploadEventData
		event   = models.CloudEvent{Data: &payload}
	)

	if err := json.Unmarshal(data, &event); err != nil {
		return models.CloudEvent{}, payload, fmt.Errorf("%w: %w", errDecodeEvent, err)
	}

	if event.Type != EventTypeDataUpdated {
		return event, payload, fmt.Errorf("%w: unexpected type %q", errDecodeEvent, event.Type)
	}

	event.Data = payload

	return event, payload, nil
}

// SubscribeDataUpdated calls handler for every well-formed event on subject.
// Malformed messages are logged and dropped.
func SubscribeDataUpdated(nc *nats.Conn, subject string, log logger.Logger, handler func(models.UploadEventData)) (*nats.Subscription, error) {
	if subject == "" {
		return nil, errEmptySubject
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		_, payload, err := DecodeEvent(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed event")
			return
		}

		handler(payload)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	return sub, nil
}

// Connect opens a NATS connection described by cfg.
func Connect(cfg *models.NATSConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	opts := []nats.Option{nats.Name("chemvis-server")}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

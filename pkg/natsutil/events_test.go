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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

var errTestFixture = errors.New("fixture error")

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data

	return f.err
}

func TestPublishDataUpdated(t *testing.T) {
	conn := &fakeConn{}

	pub, err := NewEventPublisher(conn, "chemvis.equipment.updated", logger.NewTestLogger())
	require.NoError(t, err)

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	entry := models.HistoryEntry{ID: 7, Filename: "plant.csv", ItemCount: 3, UploadDate: fixed}
	require.NoError(t, pub.PublishDataUpdated(context.Background(), entry))

	assert.Equal(t, "chemvis.equipment.updated", conn.subject)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.data, &raw))
	assert.Equal(t, "1.0", raw["specversion"])
	assert.Equal(t, EventSource, raw["source"])
	assert.NotEmpty(t, raw["id"])

	event, payload, err := DecodeEvent(conn.data)
	require.NoError(t, err)
	assert.Equal(t, EventTypeDataUpdated, event.Type)
	assert.Equal(t, int64(7), payload.SessionID)
	assert.Equal(t, "plant.csv", payload.Filename)
	assert.Equal(t, 3, payload.ItemCount)
	require.NotNil(t, event.Time)
	assert.True(t, fixed.Equal(*event.Time))
}

func TestPublishDataUpdatedErrors(t *testing.T) {
	t.Run("publish failure", func(t *testing.T) {
		pub, err := NewEventPublisher(&fakeConn{err: errTestFixture}, "s", nil)
		require.NoError(t, err)

		err = pub.PublishDataUpdated(context.Background(), models.HistoryEntry{})
		require.ErrorIs(t, err, errTestFixture)
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &fakeConn{}
		pub, err := NewEventPublisher(conn, "s", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, pub.PublishDataUpdated(ctx, models.HistoryEntry{}), context.Canceled)
		assert.Nil(t, conn.data)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := NewEventPublisher(&fakeConn{}, "", nil)
		require.ErrorIs(t, err, errEmptySubject)
	})
}

func TestDecodeEventRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "data_updated"},
		{"wrong type", `{"specversion":"1.0","id":"x","source":"s","type":"other"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeEvent([]byte(tc.data))
			require.ErrorIs(t, err, errDecodeEvent)
		})
	}
}

func TestTLSConfig(t *testing.T) {
	_, err := TLSConfig(nil)
	require.ErrorIs(t, err, ErrTLSIncomplete)

	_, err = TLSConfig(&models.TLSConfig{CertFile: "cert.pem"})
	require.ErrorIs(t, err, ErrTLSIncomplete)

	missing := filepath.Join(t.TempDir(), "nope.pem")
	_, err = TLSConfig(&models.TLSConfig{CertFile: missing, KeyFile: missing})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

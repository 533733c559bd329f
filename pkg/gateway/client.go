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

// Package gateway routes dashboard reads and writes to the backend, falling
// back to the local dataset whenever the backend cannot be reached.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
	"github.com/carverauto/chemvis/pkg/report"
)

const (
	defaultReportTimeout = 30 * time.Second
	maxErrorBody         = 512
)

// Client is the data source gateway.
type Client struct {
	baseURL       string
	username      string
	password      string
	timeout       time.Duration
	reportTimeout time.Duration
	http          HTTPClient
	demo          DemoSource
	mode          *ModeTracker
	logger        logger.Logger
	now           func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout bounds every read and upload call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithReportTimeout bounds the live report download.
func WithReportTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.reportTimeout = d
	}
}

func WithModeTracker(t *ModeTracker) Option {
	return func(c *Client) {
		c.mode = t
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a gateway for the API rooted at baseURL (for example
// http://host:8000/api) that serves demo data from demo.
func New(baseURL string, demo DemoSource, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		timeout:       models.DefaultRequestTimeout,
		reportTimeout: defaultReportTimeout,
		http:          &http.Client{},
		demo:          demo,
		logger:        logger.NewTestLogger(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.mode == nil {
		c.mode = NewModeTracker()
	}

	return c
}

// NewFromConfig wires a gateway from client configuration.
func NewFromConfig(cfg *models.ClientConfig, demo DemoSource, opts ...Option) *Client {
	base := []Option{
		WithCredentials(cfg.Username, cfg.Password),
		WithTimeout(time.Duration(cfg.RequestTimeout)),
	}

	return New(cfg.BaseURL, demo, append(base, opts...)...)
}

// Modes exposes the shared routing state.
func (c *Client) Modes() *ModeTracker {
	return c.mode
}

// GetSummary returns backend statistics, or the local ones when the backend fails.
func (c *Client) GetSummary(ctx context.Context) models.SummaryStats {
	var s models.SummaryStats

	err := c.getJSON(ctx, "/summary/", &s)
	if c.settle(ResourceSummary, err) {
		return c.demo.Snapshot().Summary
	}

	if s.TypeDistribution == nil {
		s.TypeDistribution = map[string]int{}
	}

	return s
}

// GetEquipment returns the backend item list, or the local one when the backend fails.
func (c *Client) GetEquipment(ctx context.Context) []models.EquipmentItem {
	var items []models.EquipmentItem

	err := c.getJSON(ctx, "/equipment/", &items)
	if c.settle(ResourceEquipment, err) {
		return c.demo.Snapshot().Equipment
	}

	return items
}

// GetHistory returns the backend upload log, or the local one when the backend fails.
func (c *Client) GetHistory(ctx context.Context) []models.HistoryEntry {
	var entries []models.HistoryEntry

	err := c.getJSON(ctx, "/history/", &entries)
	if c.settle(ResourceHistory, err) {
		return c.demo.Snapshot().History
	}

	return entries
}

// settle records the outcome of a call, sets the global mode from it and
// reports whether the caller must fall back to demo data.
func (c *Client) settle(r Resource, err error) bool {
	c.mode.Record(r, err)

	if err == nil {
		c.mode.Set(ModeLive)
		return false
	}

	c.logFailure(r, err)
	c.mode.Set(ModeDemo)

	return true
}

func (c *Client) logFailure(r Resource, err error) {
	ev := c.logger.Debug()
	if isUnauthorized(err) {
		ev = c.logger.Warn()
	}

	ev.Err(err).Str("resource", string(r)).Msg("Backend call failed, serving demo data")
}

// UploadCSV sends the payload to the backend, or ingests it locally when the
// backend rejects it or cannot be reached.
func (c *Client) UploadCSV(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %w", ingest.ErrFileRead, err)
	}

	res, err := c.postFile(ctx, "/upload/", filename, data)
	if !c.settle(ResourceUpload, err) {
		return res, nil
	}

	return c.demo.Ingest(filename, bytes.NewReader(data))
}

// DownloadReport returns the backend report in live mode, or the offline text
// report in demo mode. A failed live download falls back to the offline
// report once.
func (c *Client) DownloadReport(ctx context.Context) (models.Report, error) {
	if c.mode.IsDemo() {
		return c.demoReport()
	}

	rep, err := c.liveReport(ctx)
	if c.settle(ResourceReport, err) {
		return c.demoReport()
	}

	return rep, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return err
	}

	return c.doJSON(req, dst)
}

func (c *Client) postFile(ctx context.Context, path, filename string, data []byte) (models.UploadResult, error) {
	var (
		body bytes.Buffer
		res  models.UploadResult
	)

	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return res, err
	}

	if _, err = part.Write(data); err != nil {
		return res, err
	}

	if err = mw.Close(); err != nil {
		return res, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, path, &body)
	if err != nil {
		return res, err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.doJSON(req, &res)

	return res, err
}

func (c *Client) doJSON(req *http.Request, dst interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: ensure the backend user %q exists with the configured password",
			ErrUnauthorized, c.username)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return fmt.Errorf("%w: %d, response: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) liveReport(ctx context.Context) (models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.reportTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/report/", http.NoBody)
	if err != nil {
		return models.Report{}, err
	}

	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Report{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return models.Report{}, fmt.Errorf("%w: %w", errReportFailed, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Report{}, fmt.Errorf("%w: %w", errReportFailed, err)
	}

	contentType := resp.Header.Get("Content-Type")

	return models.Report{
		Filename:    report.Filename("", c.now(), extensionFor(contentType)),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (c *Client) demoReport() (models.Report, error) {
	snap := c.demo.Snapshot()
	now := c.now()

	body, err := report.Text(&report.Data{
		Generated: now,
		Summary:   snap.Summary,
		Equipment: snap.Equipment,
		History:   snap.History,
	})
	if err != nil {
		return models.Report{}, err
	}

	return models.Report{
		Filename:    report.Filename("SYNC", now, "txt"),
		ContentType: report.ContentTypeText,
		Body:        body,
		Demo:        true,
	}, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "application/pdf"):
		return "pdf"
	case strings.HasPrefix(contentType, "text/html"):
		return "html"
	case strings.HasPrefix(contentType, "text/plain"):
		return "txt"
	default:
		return "bin"
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxBatchSize is the number of records the API accepts per create call.
const MaxBatchSize = 10

// DefaultBaseURL points at the public REST endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "trombinoscope",
	Subsystem: "airtable",
	Name:      "request_duration_seconds",
	Help:      "Duration of Airtable REST calls",
}, []string{"method", "table"})

// Config defines connection settings for a single base.
type Config struct {
	Token      string
	BaseID     string
	BaseURL    string
	View       string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Record is a table row as returned by the API.
type Record struct {
	ID          string                 `json:"id,omitempty"`
	CreatedTime string                 `json:"createdTime,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: status %d (%s)", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one Airtable base.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// New constructs a client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.BaseID == "" {
		return nil, fmt.Errorf("airtable token and base id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tracer: otel.Tracer("github.com/noah-isme/trombinoscope-api/pkg/airtable"),
		logger: cfg.Logger.With().Str("component", "airtable").Logger(),
	}, nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// List returns every record of the table, following offset pagination.
func (c *Client) List(ctx context.Context, table string) ([]Record, error) {
	records := make([]Record, 0)
	offset := ""
	for {
		query := url.Values{}
		if c.cfg.View != "" {
			query.Set("view", c.cfg.View)
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, table, "", query, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, table, id string) (Record, error) {
	var record Record
	err := c.do(ctx, http.MethodGet, table, id, nil, nil, &record)
	return record, err
}

// Create inserts up to MaxBatchSize records and returns them with their ids.
func (c *Client) Create(ctx context.Context, table string, fields ...map[string]interface{}) ([]Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > MaxBatchSize {
		return nil, fmt.Errorf("airtable accepts at most %d records per create", MaxBatchSize)
	}

	payload := struct {
		Records  []Record `json:"records"`
		Typecast bool     `json:"typecast"`
	}{Typecast: true}
	for _, f := range fields {
		payload.Records = append(payload.Records, Record{Fields: f})
	}

	var response listResponse
	if err := c.do(ctx, http.MethodPost, table, "", nil, payload, &response); err != nil {
		return nil, err
	}
	return response.Records, nil
}

// Update overwrites the given fields of one record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) (Record, error) {
	payload := struct {
		Fields   map[string]interface{} `json:"fields"`
		Typecast bool                   `json:"typecast"`
	}{Fields: fields, Typecast: true}

	var record Record
	err := c.do(ctx, http.MethodPatch, table, id, nil, payload, &record)
	return record, err
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, http.MethodDelete, table, id, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, table, id string, query url.Values, body, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "airtable."+strings.ToLower(method), trace.WithAttributes(
		attribute.String("airtable.table", table),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method, table).Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.BaseID), url.PathEscape(table))
	if id != "" {
		endpoint += "/" + url.PathEscape(id)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Type)
		c.logger.Warn().Str("table", table).Str("method", method).Int("status", resp.StatusCode).Msg("airtable request rejected")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Error) == 0 {
		return apiErr
	}

	// The error is either a bare string or an object.
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &detail); err == nil {
		if detail.Type != "" {
			apiErr.Type = detail.Type
		}
		apiErr.Message = detail.Message
		return apiErr
	}

	var code string
	if err := json.Unmarshal(payload.Error, &code); err == nil && code != "" {
		apiErr.Type = code
	}
	return apiErr
}

// Package fixtures creates and deletes test data through the pet-finder REST API, so that
// scenarios never depend on the backend's internal storage.
package fixtures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/petfinder/e2e-harness/config"
	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/helpers"
	"github.com/petfinder/e2e-harness/metrics"
)

const (
	dateFormat           = "2006-01-02"
	maxErrorBodyLength   = 2000
	defaultLatitude      = 52.2297
	defaultLongitude     = 21.0122
	defaultFixtureStatus = "ACTIVE"
)

// Fixture is a record created through the API.
type Fixture struct {
	ID string
	// Credential is the management secret returned at creation, if any.
	Credential string
	Label      string
}

// Gateway makes the fixture API calls. Every call has a time limit.
type Gateway struct {
	baseURL         string
	resource        string
	credentialField string
	adminHeader     string
	adminToken      string
	client          *http.Client
	timeout         time.Duration
	now             func() time.Time
	logger          framework.Logger
	metrics         *metrics.Metrics
}

// GatewayOption is an option for NewGateway.
type GatewayOption func(*Gateway) error

func (o GatewayOption) Configure(g *Gateway) error { return o(g) }

// WithHTTPClient replaces the default client. Its Timeout is overridden by the gateway timeout.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) error {
		g.client = client
		return nil
	}
}

func WithLogger(logger framework.Logger) GatewayOption {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) error {
		g.metrics = m
		return nil
	}
}

// WithClock sets the source of the current date used for default fields.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) error {
		g.now = now
		return nil
	}
}

// NewGateway creates a Gateway for the configured backend.
func NewGateway(backend config.BackendConfig, timeout time.Duration, options ...GatewayOption) (*Gateway, error) {
	if _, err := url.ParseRequestURI(backend.URL); err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", backend.URL, err)
	}
	g := &Gateway{
		baseURL:         strings.TrimSuffix(backend.URL, "/"),
		resource:        backend.Resource,
		credentialField: helpers.IfElse(backend.CredentialField == "", "managementPassword", backend.CredentialField),
		adminHeader:     helpers.IfElse(backend.AdminHeader == "", "Authorization", backend.AdminHeader),
		adminToken:      backend.AdminToken,
		client:          &http.Client{},
		timeout:         timeout,
		now:             time.Now,
		logger:          framework.NullLogger(),
	}
	if err := helpers.ApplyOptions(g, options...); err != nil {
		return nil, err
	}
	if g.timeout <= 0 {
		g.timeout = 10 * time.Second
	}
	c := *g.client
	c.Timeout = g.timeout
	g.client = &c
	return g, nil
}

// DefaultFields returns the fields that CreateFixture fills in when the caller omits them: a
// location, today's date as the date the pet was seen, and an active status.
func (g *Gateway) DefaultFields() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("locationLatitude", ldvalue.Float64(defaultLatitude)).
		Set("locationLongitude", ldvalue.Float64(defaultLongitude)).
		SetString("eventDate", g.now().Format(dateFormat)).
		SetString("status", defaultFixtureStatus).
		Build()
}

// MergeFields returns the default fields overlaid with the caller's fields.
func (g *Gateway) MergeFields(fields map[string]ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for k, v := range g.DefaultFields().AsValueMap().AsMap() {
		if _, overridden := fields[k]; !overridden {
			b.Set(k, v)
		}
	}
	for _, k := range helpers.SortedKeys(fields) {
		b.Set(k, fields[k])
	}
	return b.Build()
}

// CreateFixture creates a record from the caller's fields merged over the defaults. The label
// is only used in logs and errors; tracking is done by Tracker.
func (g *Gateway) CreateFixture(ctx context.Context, label string, fields map[string]ldvalue.Value) (Fixture, error) {
	payload := g.MergeFields(fields)
	status, body, err := g.doRequest(ctx, http.MethodPost, g.collectionURL(), []byte(payload.JSONString()), false)
	if err != nil {
		g.metrics.FixtureFailed("create")
		return Fixture{}, &FixtureCreationError{Label: label, Err: err}
	}
	if status < 200 || status > 299 {
		g.metrics.FixtureFailed("create")
		return Fixture{}, &FixtureCreationError{Label: label, Status: status, Body: truncate(body)}
	}
	parsed := ldvalue.Parse(body)
	f := Fixture{
		ID:         idString(parsed.GetByKey("id")),
		Credential: parsed.GetByKey(g.credentialField).StringValue(),
		Label:      label,
	}
	if f.ID == "" {
		g.metrics.FixtureFailed("create")
		return Fixture{}, &FixtureCreationError{Label: label, Status: status, Body: truncate(body),
			Err: errors.New("response has no id")}
	}
	g.metrics.FixtureCreated()
	g.logger.Printf("Created fixture %q with id %s", label, f.ID)
	return f, nil
}

// DeleteFixture deletes a record using the admin credential. A record that does not exist counts
// as deleted, so deleting twice is not an error.
func (g *Gateway) DeleteFixture(ctx context.Context, id string) error {
	status, body, err := g.doRequest(ctx, http.MethodDelete, g.adminURL(id), nil, true)
	if err != nil {
		g.metrics.FixtureFailed("delete")
		return &FixtureDeletionError{ID: id, Err: err}
	}
	switch {
	case status == http.StatusNotFound:
		g.logger.Printf("Fixture %s was already gone", id)
	case status >= 200 && status <= 299:
		g.logger.Printf("Deleted fixture %s", id)
	default:
		g.metrics.FixtureFailed("delete")
		return &FixtureDeletionError{ID: id, Status: status, Body: truncate(body)}
	}
	g.metrics.FixtureDeleted()
	return nil
}

// GetFixture returns the current JSON representation of a record.
func (g *Gateway) GetFixture(ctx context.Context, id string) (ldvalue.Value, error) {
	status, body, err := g.doRequest(ctx, http.MethodGet, g.collectionURL()+"/"+url.PathEscape(id), nil, false)
	if err != nil {
		return ldvalue.Null(), err
	}
	switch {
	case status == http.StatusNotFound:
		return ldvalue.Null(), ErrFixtureNotFound
	case status < 200 || status > 299:
		return ldvalue.Null(), fmt.Errorf("GET fixture %s returned HTTP %d: %s", id, status, truncate(body))
	}
	return ldvalue.Parse(body), nil
}

func (g *Gateway) collectionURL() string {
	return g.baseURL + "/api/v1/" + g.resource
}

func (g *Gateway) adminURL(id string) string {
	return g.baseURL + "/api/admin/v1/" + g.resource + "/" + url.PathEscape(id)
}

func (g *Gateway) doRequest(
	ctx context.Context,
	method, target string,
	body []byte,
	admin bool,
) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && g.adminToken != "" {
		value := g.adminToken
		if strings.EqualFold(g.adminHeader, "Authorization") {
			value = "Bearer " + value
		}
		req.Header.Set(g.adminHeader, value)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// The API may return numeric ids.
func idString(v ldvalue.Value) string {
	if v.IsNumber() {
		return v.JSONString()
	}
	return v.StringValue()
}

func truncate(body []byte) string {
	s := string(body)
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength] + "..."
	}
	return s
}

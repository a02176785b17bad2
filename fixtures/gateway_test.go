package fixtures

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petfinder/e2e-harness/config"
	"github.com/petfinder/e2e-harness/framework"
)

const testBaseURL = "http://backend.test"

func testBackendConfig() config.BackendConfig {
	return config.BackendConfig{
		URL:             testBaseURL,
		AdminToken:      "admin-secret",
		AdminHeader:     "Authorization",
		Resource:        "announcements",
		CredentialField: "managementPassword",
	}
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 9, 15, 4, 5, 0, time.UTC)
}

func newTestGateway(t *testing.T) *Gateway {
	g, err := NewGateway(testBackendConfig(), time.Second, WithClock(fixedClock))
	require.NoError(t, err)
	return g
}

func TestCreateFixtureMergesDefaults(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent ldvalue.Value
	httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements",
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			sent = ldvalue.Parse(body)
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(201, `{"id":"a-1","managementPassword":"pw"}`), nil
		})

	g := newTestGateway(t)
	f, err := g.CreateFixture(context.Background(), "TestDog", map[string]ldvalue.Value{
		"petName": ldvalue.String("TestDog"),
		"species": ldvalue.String("DOG"),
		"status":  ldvalue.String("FOUND"),
	})
	require.NoError(t, err)
	assert.Equal(t, Fixture{ID: "a-1", Credential: "pw", Label: "TestDog"}, f)

	m.In(t).Assert(sent, m.JSONStrEqual(`{
		"petName": "TestDog",
		"species": "DOG",
		"status": "FOUND",
		"eventDate": "2024-03-09",
		"locationLatitude": 52.2297,
		"locationLongitude": 21.0122
	}`))
}

func TestCreateFixtureNumericID(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements",
		httpmock.NewStringResponder(201, `{"id":42}`))

	f, err := newTestGateway(t).CreateFixture(context.Background(), "Rex", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", f.ID)
	assert.Equal(t, "", f.Credential)
}

func TestCreateFixtureErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("rejected", func(t *testing.T) {
		httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements",
			httpmock.NewStringResponder(400, `{"error":"species is required"}`))
		_, err := newTestGateway(t).CreateFixture(context.Background(), "Rex", nil)
		var fce *FixtureCreationError
		require.True(t, errors.As(err, &fce))
		assert.Equal(t, 400, fce.Status)
		assert.Equal(t, `{"error":"species is required"}`, fce.Body)
		assert.Contains(t, err.Error(), `"Rex"`)
	})

	t.Run("unreachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements", httpmock.NewErrorResponder(cause))
		_, err := newTestGateway(t).CreateFixture(context.Background(), "Rex", nil)
		var fce *FixtureCreationError
		require.True(t, errors.As(err, &fce))
		assert.Equal(t, 0, fce.Status)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("no id", func(t *testing.T) {
		httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements",
			httpmock.NewStringResponder(201, `{}`))
		_, err := newTestGateway(t).CreateFixture(context.Background(), "Rex", nil)
		var fce *FixtureCreationError
		require.True(t, errors.As(err, &fce))
	})
}

func TestDeleteFixture(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("DELETE", testBaseURL+"/api/admin/v1/announcements/a-1",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer admin-secret" {
				return httpmock.NewStringResponse(401, ""), nil
			}
			return httpmock.NewStringResponse(204, ""), nil
		})
	httpmock.RegisterResponder("DELETE", testBaseURL+"/api/admin/v1/announcements/gone",
		httpmock.NewStringResponder(404, `{"error":"not found"}`))
	httpmock.RegisterResponder("DELETE", testBaseURL+"/api/admin/v1/announcements/broken",
		httpmock.NewStringResponder(500, "oops"))

	g := newTestGateway(t)
	assert.NoError(t, g.DeleteFixture(context.Background(), "a-1"))
	assert.NoError(t, g.DeleteFixture(context.Background(), "gone"))

	err := g.DeleteFixture(context.Background(), "broken")
	var fde *FixtureDeletionError
	require.True(t, errors.As(err, &fde))
	assert.Equal(t, 500, fde.Status)
	assert.Equal(t, "broken", fde.ID)
}

func TestDeleteFixtureCustomAdminHeader(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("DELETE", testBaseURL+"/api/admin/v1/announcements/a-1",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "admin-secret", req.Header.Get("X-Admin-Token"))
			assert.Equal(t, "", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(204, ""), nil
		})

	cfg := testBackendConfig()
	cfg.AdminHeader = "X-Admin-Token"
	g, err := NewGateway(cfg, time.Second)
	require.NoError(t, err)
	assert.NoError(t, g.DeleteFixture(context.Background(), "a-1"))
}

func TestGetFixture(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/announcements/a-1",
		httpmock.NewStringResponder(200, `{"id":"a-1","species":"CAT"}`))
	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/announcements/missing",
		httpmock.NewStringResponder(404, ""))

	g := newTestGateway(t)
	v, err := g.GetFixture(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, "CAT", v.GetByKey("species").StringValue())

	_, err = g.GetFixture(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestRequestsHaveTimeout(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/announcements/slow",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	g, err := NewGateway(testBackendConfig(), 50*time.Millisecond)
	require.NoError(t, err)
	start := time.Now()
	_, err = g.GetFixture(context.Background(), "slow")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewGatewayRejectsInvalidURL(t *testing.T) {
	cfg := testBackendConfig()
	cfg.URL = "not a url"
	_, err := NewGateway(cfg, time.Second)
	assert.Error(t, err)
}

func TestGatewayLogsToPrefixedLogger(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", testBaseURL+"/api/v1/announcements",
		httpmock.NewStringResponder(201, `{"id":"a-1","managementPassword":"pw"}`))
	httpmock.RegisterResponder("DELETE", testBaseURL+"/api/admin/v1/announcements/a-1",
		httpmock.NewStringResponder(204, ""))

	logger := framework.NewCapturingLogger(nil)
	g, err := NewGateway(testBackendConfig(), time.Second,
		WithLogger(framework.LoggerWithPrefix(logger, "[fixtures] ")))
	require.NoError(t, err)

	_, err = g.CreateFixture(context.Background(), "Rex", nil)
	require.NoError(t, err)
	require.NoError(t, g.DeleteFixture(context.Background(), "a-1"))

	out := logger.Output()
	require.Len(t, out, 2)
	assert.Equal(t, `[fixtures] Created fixture "Rex" with id a-1`, out[0].Message)
	assert.Equal(t, "[fixtures] Deleted fixture a-1", out[1].Message)
}

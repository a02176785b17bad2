package environment

import (
	"bufio"
	"context"
	"fmt"
	"hash/crc32"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustParseURL(t *testing.T, s string) *url.URL {
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

// withFakeRedis serves just enough of the Redis protocol for a client to connect and ping:
// HELLO is refused so the client falls back to RESP2, and everything but PING gets +OK.
func withFakeRedis(t *testing.T, action func(addr string)) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveFakeRedis(conn)
		}
	}()
	action(ln.Addr().String())
}

func serveFakeRedis(conn net.Conn) {
	defer conn.Close() //nolint:errcheck
	r := bufio.NewReader(conn)
	for {
		args, err := readRedisCommand(r)
		if err != nil {
			return
		}
		reply := "+OK\r\n"
		switch strings.ToUpper(args[0]) {
		case "HELLO":
			reply = "-ERR unknown command 'HELLO'\r\n"
		case "PING":
			reply = "+PONG\r\n"
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func readRedisCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("unexpected line %q", line)
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil { // $<length>
			return nil, err
		}
		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimRight(arg, "\r\n"))
	}
	return args, nil
}

func TestRedisProbe(t *testing.T) {
	withFakeRedis(t, func(addr string) {
		assert.NoError(t, redisProbe(probeContext(t), mustParseURL(t, "redis://"+addr)))

		c := newTestChecker(t)
		assert.True(t, c.IsHealthy(context.Background(), Dependency{Name: "cache", HealthURL: "redis://" + addr}))
	})
}

func TestRedisProbeNothingListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	assert.Error(t, redisProbe(probeContext(t), mustParseURL(t, "redis://"+addr)))
}

func TestConsulProbe(t *testing.T) {
	t.Run("leader elected", func(t *testing.T) {
		handler := httphelpers.HandlerForPath("/v1/status/leader",
			httphelpers.HandlerWithJSONResponse("10.0.0.1:8300", nil), nil)
		httphelpers.WithServer(handler, func(server *httptest.Server) {
			u := mustParseURL(t, "consul://"+mustParseURL(t, server.URL).Host)
			assert.NoError(t, consulProbe(probeContext(t), u))
		})
	})

	t.Run("no leader yet", func(t *testing.T) {
		handler := httphelpers.HandlerForPath("/v1/status/leader",
			httphelpers.HandlerWithJSONResponse("", nil), nil)
		httphelpers.WithServer(handler, func(server *httptest.Server) {
			u := mustParseURL(t, "consul://"+mustParseURL(t, server.URL).Host)
			err := consulProbe(probeContext(t), u)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "has no leader yet")
		})
	})

	t.Run("agent error", func(t *testing.T) {
		httphelpers.WithServer(httphelpers.HandlerWithStatus(500), func(server *httptest.Server) {
			u := mustParseURL(t, "consul://"+mustParseURL(t, server.URL).Host)
			assert.Error(t, consulProbe(probeContext(t), u))
		})
	})
}

// dynamoDBHandler replies like DynamoDB Local, including the CRC32 header that the client
// validates.
func dynamoDBHandler(status int, body string) http.Handler {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/x-amz-json-1.0")
	headers.Set("X-Amz-Crc32", strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(body))), 10))
	return httphelpers.HandlerWithResponse(status, headers, []byte(body))
}

func TestDynamoDBProbe(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(dynamoDBHandler(200, `{"TableNames":[]}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		u := mustParseURL(t, "dynamodb://"+mustParseURL(t, server.URL).Host+"?region=eu-central-1")
		require.NoError(t, dynamoDBProbe(probeContext(t), u))

		r := <-requests
		assert.Equal(t, "DynamoDB_20120810.ListTables", r.Request.Header.Get("X-Amz-Target"))
		assert.Contains(t, r.Request.Header.Get("Authorization"), "/eu-central-1/dynamodb/")
	})
}

func TestDynamoDBProbeError(t *testing.T) {
	body := `{"__type":"com.amazonaws.dynamodb.v20120810#AccessDeniedException","message":"denied"}`
	httphelpers.WithServer(dynamoDBHandler(400, body), func(server *httptest.Server) {
		u := mustParseURL(t, "dynamodb://"+mustParseURL(t, server.URL).Host)
		err := dynamoDBProbe(probeContext(t), u)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AccessDeniedException")
	})
}

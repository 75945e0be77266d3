package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/auth.AuthService/ValidateToken")
	assert.Equal(t, "auth.AuthService", service)
	assert.Equal(t, "ValidateToken", method)

	service, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/chats/:chat_group_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/chats/:chat_group_id", "200"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/abc", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/chats/:chat_group_id", "200"))
	assert.Equal(t, before+1, after)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any, map[string]string) error {
	return errors.New("broker down")
}

func TestPublishEventCountsFailures(t *testing.T) {
	SetPublisher(failingPublisher{})
	t.Cleanup(func() { SetPublisher(nil) })

	before := testutil.ToFloat64(amqpPublishErrorsTotal)
	err := PublishEvent(context.Background(), "ws_events.dm", EventEnvelope{EventName: "ws_connect"}, nil)
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(amqpPublishErrorsTotal))
}

func TestPublishEventWithoutPublisher(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "ws_events.dm", EventEnvelope{}, nil))
}

func TestBuildHeaders(t *testing.T) {
	assert.Empty(t, BuildHeaders("", ""))
	assert.Equal(t, map[string]string{"x-request-id": "r", "trace_id": "t"}, BuildHeaders("r", "t"))
}

type recordingPublisher struct {
	routingKey string
	event      any
	headers    map[string]string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event any, headers map[string]string) error {
	p.routingKey, p.event, p.headers = routingKey, event, headers
	return nil
}

func TestPublishWSEvent(t *testing.T) {
	rec := &recordingPublisher{}
	SetPublisher(rec)
	t.Cleanup(func() { SetPublisher(nil) })

	before := testutil.ToFloat64(wsEventsTotal.WithLabelValues("dm", "ws_connect"))
	PublishWSEvent(context.Background(), WSEvent{Kind: "dm", Event: "ws_connect", ConnID: "c1"}, Identity{UserID: "u1", IP: "10.0.0.1"}, "req-1", "")

	assert.Equal(t, before+1, testutil.ToFloat64(wsEventsTotal.WithLabelValues("dm", "ws_connect")))
	assert.Equal(t, WSEventsRoutingKey, rec.routingKey)
	assert.Equal(t, map[string]string{"x-request-id": "req-1"}, rec.headers)

	envelope, ok := rec.event.(EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, "ws_events", envelope.EventType)
	assert.Equal(t, "ws_connect", envelope.EventName)
}

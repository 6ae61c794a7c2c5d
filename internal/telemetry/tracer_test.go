// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, p.tp)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderUnsupportedExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "workpulsed",
		ExporterType: "carrier-pigeon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestTracerReturnsNamedTracer(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, Tracer("workpulse.test"))
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/api/breaks/start", 201)
	assert.Contains(t, attrs, attribute.String(HTTPMethodKey, "POST"))
	assert.Contains(t, attrs, attribute.String(HTTPRouteKey, "/api/breaks/start"))
	assert.Contains(t, attrs, attribute.Int(HTTPStatusCodeKey, 201))
}

func TestSessionAttributesSkipsEmptyFields(t *testing.T) {
	attrs := SessionAttributes("", "Lunch", "", 42)
	assert.Len(t, attrs, 2)
	assert.Contains(t, attrs, attribute.String(BreakTypeKey, "Lunch"))
	assert.Contains(t, attrs, attribute.Int64(BreakUserIDKey, 42))

	full := SessionAttributes("abc", "Lunch", "ONGOING", 42)
	assert.Len(t, full, 4)
}

func TestEventAttributes(t *testing.T) {
	attrs := EventAttributes("break_warning", 3)
	assert.Contains(t, attrs, attribute.String(EventTypeKey, "break_warning"))
	assert.Contains(t, attrs, attribute.Int(EventSubscribersKey, 3))
}

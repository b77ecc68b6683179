// SPDX-License-Identifier: MIT

package catalog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/xtreamcache/xtreamcache/internal/catalog")

// startSpan opens a span named "catalog.<op>" with an "account" attribute,
// mirroring the otelhttp instrumentation the teacher applies to its HTTP
// handlers, applied here to the storage layer instead.
func startSpan(ctx context.Context, op, account string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "catalog."+op, trace.WithAttributes(
		attribute.String("account", account),
	))
}

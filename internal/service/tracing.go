package service

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/bitandsolution/stadium-hospitality-manager/internal/service")

package requestctx

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
	clientKey    contextKey = "client"
)

type actorValue struct {
	Type string
	ID   string
}

type clientValue struct {
	IPAddress string
	UserAgent string
	Country   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithActor records who is performing the request ("staff", "system").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	actorType = strings.TrimSpace(actorType)
	if actorType == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actorValue{
		Type: actorType,
		ID:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if value, ok := ctx.Value(actorKey).(actorValue); ok {
		return value.Type, value.ID
	}
	return "", ""
}

// WithClient records request network metadata for audit and policy checks.
func WithClient(ctx context.Context, ipAddress, userAgent, country string) context.Context {
	return context.WithValue(ctx, clientKey, clientValue{
		IPAddress: strings.TrimSpace(ipAddress),
		UserAgent: strings.TrimSpace(userAgent),
		Country:   strings.ToUpper(strings.TrimSpace(country)),
	})
}

func IPAddressFromContext(ctx context.Context) string {
	if value, ok := clientFromContext(ctx); ok {
		return value.IPAddress
	}
	return ""
}

func UserAgentFromContext(ctx context.Context) string {
	if value, ok := clientFromContext(ctx); ok {
		return value.UserAgent
	}
	return ""
}

func CountryFromContext(ctx context.Context) string {
	if value, ok := clientFromContext(ctx); ok {
		return value.Country
	}
	return ""
}

func clientFromContext(ctx context.Context) (clientValue, bool) {
	if ctx == nil {
		return clientValue{}, false
	}
	value, ok := ctx.Value(clientKey).(clientValue)
	return value, ok
}

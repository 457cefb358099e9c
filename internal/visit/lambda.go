package visit

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

func requestIDFrom(ctx context.Context, fallback string) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return fallback
}

// HandleAPIGateway serves API Gateway REST API (payload v1) proxy events.
func (h *Handler) HandleAPIGateway(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	res := h.Handle(ctx, Request{
		Method:    ev.HTTPMethod,
		RequestID: requestIDFrom(ctx, ev.RequestContext.RequestID),
	})
	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       res.Body,
	}, nil
}

// HandleHTTPAPI serves API Gateway HTTP API and function URL (payload v2) events.
func (h *Handler) HandleHTTPAPI(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	res := h.Handle(ctx, Request{
		Method:    ev.RequestContext.HTTP.Method,
		RequestID: requestIDFrom(ctx, ev.RequestContext.RequestID),
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       res.Body,
	}, nil
}

type payloadVersion struct {
	Version string `json:"version"`
}

// HandleEvent accepts either payload version and answers in the same version.
// Payloads that do not decode are handled like a v1 event without a method.
func (h *Handler) HandleEvent(ctx context.Context, payload json.RawMessage) (any, error) {
	var pv payloadVersion
	_ = json.Unmarshal(payload, &pv)

	if pv.Version == "2.0" {
		var ev events.APIGatewayV2HTTPRequest
		_ = json.Unmarshal(payload, &ev)
		return h.HandleHTTPAPI(ctx, ev)
	}

	var ev events.APIGatewayProxyRequest
	_ = json.Unmarshal(payload, &ev)
	return h.HandleAPIGateway(ctx, ev)
}

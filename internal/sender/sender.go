package sender

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// SignatureHeader carries the base64 HMAC-SHA256 of the body.
	SignatureHeader = "X-Webhook-Signature"
	// EventTypeHeader carries the domain event name.
	EventTypeHeader = "X-Event-Type"

	defaultTimeout = 10 * time.Second
)

// Request is one signed outbound POST.
type Request struct {
	URL       string
	EventType string
	Signature string
	Body      []byte
	Timeout   time.Duration
}

// Response stores endpoint call metadata for the delivery record.
type Response struct {
	StatusCode int
	Body       string
}

// Sender is the outbound webhook delivery port.
type Sender interface {
	Post(ctx context.Context, req Request) (*Response, error)
}

// HTTPSender posts signed payloads to subscriber endpoints.
type HTTPSender struct {
	client *resty.Client
}

func NewHTTPSender() *HTTPSender {
	client := resty.New()
	client.SetRetryCount(0)

	return &HTTPSender{client: client}
}

func NewHTTPSenderWithClient(client *resty.Client) (*HTTPSender, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	client.SetRetryCount(0)

	return &HTTPSender{client: client}, nil
}

func (s *HTTPSender) Post(ctx context.Context, req Request) (*Response, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}

	endpoint := strings.TrimSpace(req.URL)
	if endpoint == "" {
		return nil, fmt.Errorf("target url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := s.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetHeader(SignatureHeader, req.Signature).
		SetHeader(EventTypeHeader, req.EventType).
		SetBody(req.Body).
		Post(endpoint)
	if err != nil {
		return nil, &SendError{
			Message:   "request failed",
			Transport: true,
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &SendError{
			Message:   "endpoint returned empty response",
			Transport: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &SendError{
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, responseBody),
	}
}

func statusErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("endpoint returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// Package push sends remote notifications through the Expo push service
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the Expo push send endpoint
	DefaultURL = "https://exp.host/--/api/v2/push/send"

	expoBatchLimit = 100
)

// ErrDeviceNotRegistered means the token no longer reaches a device and
// should be forgotten
var ErrDeviceNotRegistered = errors.New("device not registered")

// Message represents a single push notification message for the Expo push API
type Message struct {
	To        string                 `json:"to"`
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
}

// Ticket is Expo's receipt for one message of a request
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

type sendResponse struct {
	Data   []Ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// TicketError is a message Expo rejected
type TicketError struct {
	Token   string
	Code    string
	Message string
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("expo rejected push to %s: %s (%s)", e.Token, e.Message, e.Code)
}

// Is lets errors.Is match ErrDeviceNotRegistered
func (e *TicketError) Is(target error) bool {
	return target == ErrDeviceNotRegistered && e.Code == "DeviceNotRegistered"
}

// Client sends messages to Expo, pacing requests with a token bucket
type Client struct {
	url         string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithURL points the client at another endpoint
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithAccessToken sets the bearer token required when enhanced push security
// is on for the Expo project
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithHTTPClient replaces the default http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per second. Zero or less disables pacing.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

// NewClient returns a Client for the Expo push API
func NewClient(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers one message. A rejected ticket comes back as *TicketError.
func (c *Client) Send(ctx context.Context, msg Message) error {
	errs, err := c.SendBatch(ctx, []Message{msg})
	if err != nil {
		return err
	}
	return errs[0]
}

// SendBatch delivers messages in requests of at most 100. The returned slice
// holds the outcome of each message; the error is set when a request failed
// as a whole, in which case every message of that request carries it too.
func (c *Client) SendBatch(ctx context.Context, messages []Message) ([]error, error) {
	results := make([]error, len(messages))
	var firstErr error
	for i := 0; i < len(messages); i += expoBatchLimit {
		end := i + expoBatchLimit
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[i:end]

		tickets, err := c.sendBatch(ctx, batch)
		if err != nil {
			zap.S().Errorw("failed to send expo push batch", "from", i, "to", end-1, "error", err)
			for j := i; j < end; j++ {
				results[j] = err
			}
			if firstErr == nil {
				firstErr = err
			}
			// continue with remaining batches even if one fails
			continue
		}
		for j, ticket := range tickets {
			if ticket.Status != "ok" {
				results[i+j] = &TicketError{Token: batch[j].To, Code: ticket.Details.Error, Message: ticket.Message}
			}
		}
	}
	return results, firstErr
}

func (c *Client) sendBatch(ctx context.Context, messages []Message) ([]Ticket, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for push rate limit: %w", err)
	}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo push API returned status %d: %s", resp.StatusCode, body)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("expo push API error %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}
	if len(parsed.Data) != len(messages) {
		return nil, fmt.Errorf("expo push API returned %d tickets for %d messages", len(parsed.Data), len(messages))
	}

	zap.S().Debugw("sent push notifications via expo", "count", len(messages))
	return parsed.Data, nil
}

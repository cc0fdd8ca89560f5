// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/rs/zerolog"
)

// Header names defined by the extension API.
const (
	HeaderExtensionName     = "Lambda-Extension-Name"
	HeaderExtensionID       = "Lambda-Extension-Identifier"
	HeaderFunctionErrorType = "Lambda-Extension-Function-Error-Type"
)

const maxEventBytes = 1 << 20

// Handle is the result of a successful registration. ID is the session
// identifier required on every later call; the remaining fields are
// informational and may be empty.
type Handle struct {
	ID              string `json:"-"`
	FunctionName    string `json:"functionName"`
	FunctionVersion string `json:"functionVersion"`
	Handler         string `json:"handler"`
}

// Options configures a Client.
type Options struct {
	// BaseURL is the extension API root, e.g. http://127.0.0.1:9001/2020-01-01/extension.
	BaseURL string
	// Name is sent in Lambda-Extension-Name on registration.
	Name string
	// HTTPClient must not impose an overall timeout: Next is a long-poll.
	HTTPClient *http.Client
	// Logger defaults to the "extension" component logger.
	Logger *zerolog.Logger
}

// Client talks to the platform extension API.
type Client struct {
	baseURL string
	name    string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("extension: base URL is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("extension: name is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := log.WithComponent("extension")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		name:    opts.Name,
		http:    hc,
		logger:  logger,
	}, nil
}

type registerRequest struct {
	Events []EventType `json:"events"`
}

// Register performs the registration handshake for INVOKE and SHUTDOWN
// events. Only a 200 response carrying the identifier header succeeds. The
// call is never retried.
func (c *Client) Register(ctx context.Context) (Handle, error) {
	body, err := json.Marshal(registerRequest{Events: []EventType{Invoke, Shutdown}})
	if err != nil {
		return Handle{}, fmt.Errorf("encode register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/register", bytes.NewReader(body))
	if err != nil {
		return Handle{}, fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set(HeaderExtensionName, c.name)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: register: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEventBytes))
	if err != nil {
		return Handle{}, fmt.Errorf("%w: read register response: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Handle{}, fmt.Errorf("%w: status %d: %s", ErrRegistrationRejected, resp.StatusCode, excerpt(raw))
	}

	id := resp.Header.Get(HeaderExtensionID)
	if id == "" {
		return Handle{}, ErrMissingIdentifier
	}

	var h Handle
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &h); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring undecodable registration body")
			h = Handle{}
		}
	}
	h.ID = id

	c.logger.Info().
		Str(log.FieldEvent, "extension.registered").
		Str(log.FieldExtensionName, c.name).
		Str(log.FieldExtensionID, h.ID).
		Str("function_name", h.FunctionName).
		Str("function_version", h.FunctionVersion).
		Msg("extension registered")
	return h, nil
}

// Next blocks until the platform delivers the next lifecycle event. The
// request is bounded only by ctx. Transport failures and non-200 answers wrap
// ErrTransport; undecodable bodies are returned as *DecodeError.
func (c *Client) Next(ctx context.Context, h Handle) (Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event/next", nil)
	if err != nil {
		return nil, fmt.Errorf("build next-event request: %w", err)
	}
	req.Header.Set(HeaderExtensionID, h.ID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: next event: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEventBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read next event: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w: status %d: %s", ErrTransport, ErrUnexpectedStatus, resp.StatusCode, excerpt(raw))
	}

	return DecodeEvent(raw)
}

type exitErrorRequest struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// ReportExitError tells the platform the extension is about to exit because
// of err. errorType must follow the Extension.<Reason> convention. It is best
// effort; callers are expected to exit regardless of the result.
func (c *Client) ReportExitError(ctx context.Context, h Handle, errorType string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	body, err := json.Marshal(exitErrorRequest{ErrorMessage: msg, ErrorType: errorType})
	if err != nil {
		return fmt.Errorf("encode exit error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/exit/error", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build exit error request: %w", err)
	}
	req.Header.Set(HeaderExtensionID, h.ID)
	req.Header.Set(HeaderFunctionErrorType, errorType)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: exit error: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEventBytes))

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: exit error: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

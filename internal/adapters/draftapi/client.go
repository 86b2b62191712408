package draftapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	// TokenKey is the secret store key holding the bearer token.
	TokenKey = "draftguard/api-token"

	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

// StatusError is a non-2xx answer from the draft controller.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

type BreakerConfig struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	Interval     time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:  5,
		FailureRatio: 0.8,
		OpenTimeout:  60 * time.Second,
		Interval:     30 * time.Second,
	}
}

type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Secrets        ports.SecretStore
	Breaker        BreakerConfig
	Logger         *zap.Logger
}

// Client talks to the remote draft controller. It implements
// ports.DraftService.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	secrets        ports.SecretStore
	breaker        *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

var _ ports.DraftService = (*Client)(nil)

func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Breaker == (BreakerConfig{}) {
		opts.Breaker = DefaultBreakerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	logger := opts.Logger
	breakerCfg := opts.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "draft-controller",
		MaxRequests: 1,
		Interval:    breakerCfg.Interval,
		Timeout:     breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerCfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerCfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: countsAsSuccess,
	})

	return &Client{
		baseURL:        opts.BaseURL,
		httpClient:     opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		secrets:        opts.Secrets,
		breaker:        breaker,
		logger:         logger,
	}
}

type draftRecordPayload struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	CaseNumber  string    `json:"caseNumber"`
	CaseSubject string    `json:"caseSubject"`
	PageContext string    `json:"pageContext"`
	DraftData   string    `json:"draftData"`
	LastSaved   time.Time `json:"lastSaved"`
}

type listResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Drafts  []draftRecordPayload `json:"drafts"`
}

type saveRequest struct {
	CaseID      string `json:"caseId"`
	DraftData   string `json:"draftData"`
	PageContext string `json:"pageContext"`
}

type saveResponse struct {
	Success   bool      `json:"success"`
	DraftID   string    `json:"draftId"`
	Timestamp time.Time `json:"timestamp"`
}

type getResponse struct {
	Success   bool      `json:"success"`
	DraftData string    `json:"draftData"`
	LastSaved time.Time `json:"lastSaved"`
}

type ackResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) ListActive(ctx context.Context) ([]domain.DraftRecord, error) {
	var payload listResponse
	if err := c.call(ctx, http.MethodGet, nil, &payload, "drafts"); err != nil {
		return nil, fmt.Errorf("list active drafts: %w", err)
	}
	if !payload.Success {
		if payload.Message != "" {
			return nil, fmt.Errorf("list active drafts: %w: %s", domain.ErrRemoteRejected, payload.Message)
		}
		return nil, fmt.Errorf("list active drafts: %w", domain.ErrRemoteRejected)
	}

	drafts := make([]domain.DraftRecord, 0, len(payload.Drafts))
	for _, record := range payload.Drafts {
		drafts = append(drafts, domain.DraftRecord{
			ID:          domain.DraftID(record.ID),
			CaseID:      domain.RecordID(record.CaseID),
			CaseNumber:  record.CaseNumber,
			CaseSubject: record.CaseSubject,
			PageContext: record.PageContext,
			DraftData:   record.DraftData,
			LastSaved:   record.LastSaved,
		})
	}
	return drafts, nil
}

func (c *Client) Save(ctx context.Context, req domain.SaveRequest) (domain.SaveResult, error) {
	if req.CaseID == "" {
		return domain.SaveResult{}, domain.ErrMissingRecordID
	}

	var payload saveResponse
	body := saveRequest{CaseID: string(req.CaseID), DraftData: req.DraftData, PageContext: req.PageContext}
	if err := c.call(ctx, http.MethodPost, body, &payload, "drafts"); err != nil {
		return domain.SaveResult{}, fmt.Errorf("save draft: %w", err)
	}

	return domain.SaveResult{
		Success:   payload.Success,
		DraftID:   domain.DraftID(payload.DraftID),
		Timestamp: payload.Timestamp,
	}, nil
}

// Get returns domain.ErrDraftNotFound when the controller has no draft for
// the record.
func (c *Client) Get(ctx context.Context, caseID domain.RecordID) (domain.DraftSnapshot, error) {
	if caseID == "" {
		return domain.DraftSnapshot{}, domain.ErrMissingRecordID
	}

	var payload getResponse
	err := c.call(ctx, http.MethodGet, nil, &payload, "cases", url.PathEscape(string(caseID)), "draft")
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return domain.DraftSnapshot{}, domain.ErrDraftNotFound
	}
	if err != nil {
		return domain.DraftSnapshot{}, fmt.Errorf("get draft: %w", err)
	}

	return domain.DraftSnapshot{
		Success:   payload.Success,
		DraftData: payload.DraftData,
		LastSaved: payload.LastSaved,
	}, nil
}

func (c *Client) Restore(ctx context.Context, id domain.DraftID) (bool, error) {
	if id == "" {
		return false, errors.New("draft id is required")
	}

	var payload ackResponse
	if err := c.call(ctx, http.MethodPost, nil, &payload, "drafts", url.PathEscape(string(id)), "restore"); err != nil {
		return false, fmt.Errorf("restore draft: %w", err)
	}
	return payload.Success, nil
}

func (c *Client) Delete(ctx context.Context, id domain.DraftID) (bool, error) {
	if id == "" {
		return false, errors.New("draft id is required")
	}

	var payload ackResponse
	if err := c.call(ctx, http.MethodDelete, nil, &payload, "drafts", url.PathEscape(string(id))); err != nil {
		return false, fmt.Errorf("delete draft: %w", err)
	}
	return payload.Success, nil
}

func (c *Client) call(ctx context.Context, method string, body any, out any, elems ...string) error {
	endpoint, err := buildAPIURL(c.baseURL, elems...)
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, endpoint, body, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	token, err := c.token(requestCtx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("draft controller call",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeStatusError(resp)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.secrets == nil {
		return "", nil
	}

	token, err := c.secrets.Get(ctx, TokenKey)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load api token: %w", err)
	}
	return token, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err == nil {
		statusErr.Message = payload.Message
		if statusErr.Message == "" {
			statusErr.Message = payload.Error
		}
	}
	return statusErr
}

// countsAsSuccess keeps client-side answers and caller cancellations from
// tripping the breaker. Only transport failures and 5xx count against it.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

func buildAPIURL(baseURL string, elems ...string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if len(elems) == 0 {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	return parsed.JoinPath(elems...).String(), nil
}

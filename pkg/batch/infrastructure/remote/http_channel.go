// Package remote connects the harness to the transaction service: an HTTP/JSON client
// for real runs and a local simulator for dry runs of a test plan.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const moduleName = "remote"

// PaymentRequest is the body of a procedure call.
type PaymentRequest struct {
	ContractID string                `json:"contractId"`
	Payments   []model.PaymentRecord `json:"payments"`
}

// PaymentResponse is the answer of a procedure call.
type PaymentResponse struct {
	Statuses []model.PaymentOutcome `json:"statuses"`
}

type contractResponse struct {
	ContractID string `json:"contractId"`
}

// HTTPClient talks to the transaction service over HTTP with JSON bodies.
// It implements both port.CallChannel and port.SessionRegistry.
type HTTPClient struct {
	baseURL  string
	user     string
	password string
	client   *http.Client
}

// NewHTTPClient creates a client for cfg.Host. Requests time out after cfg.Timeout.
func NewHTTPClient(cfg *config.ConnectionConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(cfg.Host, "/"),
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}
}

// Call posts the portion to /procedures/{procedure} and decodes the per-payment statuses.
func (c *HTTPClient) Call(ctx context.Context, batch port.Batch, procedure string) ([]model.PaymentOutcome, time.Duration, error) {
	body, err := json.Marshal(PaymentRequest{ContractID: batch.ContractID, Payments: batch.Payments})
	if err != nil {
		return nil, 0, exception.NewBatchError(moduleName, exception.KindPortion, "failed to encode payment request", err)
	}

	start := time.Now()
	var resp PaymentResponse
	err = c.do(ctx, http.MethodPost, "/procedures/"+url.PathEscape(procedure), body, &resp)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, exception.NewBatchErrorf(moduleName, exception.KindPortion, "procedure %s call failed", procedure, err)
	}
	logger.Debugf("Remote: procedure %s answered %d statuses in %s.", procedure, len(resp.Statuses), elapsed)
	return resp.Statuses, elapsed, nil
}

// Register creates a client contract.
func (c *HTTPClient) Register(ctx context.Context) (string, error) {
	var resp contractResponse
	if err := c.do(ctx, http.MethodPost, "/contracts", nil, &resp); err != nil {
		return "", exception.NewBatchError(moduleName, exception.KindJob, "failed to register client contract", err)
	}
	return resp.ContractID, nil
}

// Release closes a client contract. Errors are only logged.
func (c *HTTPClient) Release(ctx context.Context, contractID string) {
	if contractID == "" {
		return
	}
	if err := c.do(ctx, http.MethodDelete, "/contracts/"+url.PathEscape(contractID), nil, nil); err != nil {
		logger.Warnf("Remote: failed to close client contract %s: %v", contractID, err)
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status code %d: %w", resp.StatusCode, errors.New(strings.TrimSpace(string(bodyBytes))))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var (
	_ port.CallChannel     = (*HTTPClient)(nil)
	_ port.SessionRegistry = (*HTTPClient)(nil)
)

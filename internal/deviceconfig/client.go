package deviceconfig

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/muurk/tasfleet/internal/logging"
)

const (
	// DefaultPort is the HTTP port of the Tasmota web server
	DefaultPort = 80

	// DefaultTimeout bounds every status query, download, and reset call
	DefaultTimeout = 5 * time.Second

	// DefaultUploadTimeout bounds the configuration upload call
	DefaultUploadTimeout = 15 * time.Second

	// DefaultMaxRetries is the default number of download retries (none)
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the default delay between download retries
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second

	// UploadSuccessMarker must appear in the upload reply for a restore to count
	UploadSuccessMarker = "Successful"

	// uploadField is the multipart field (and file name) the firmware reads the dump from
	uploadField = "u2"

	// maxBodySize caps how much of any reply is read
	maxBodySize = 1 << 20
)

// Client speaks the Tasmota HTTP API. It holds no per-device state, so one
// Client can be shared by every concurrent probe and fleet task.
type Client struct {
	// Port is the device HTTP port (default: 80)
	Port int

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each status query, download, and reset call
	Timeout time.Duration

	// UploadTimeout bounds the configuration upload call
	UploadTimeout time.Duration

	// MaxRetries is the number of extra download attempts after a retryable failure
	MaxRetries int

	// RetryDelay is the initial delay between download attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after each failed attempt
	UseExponentialBackoff bool
}

// NewClient creates a client with default timeouts and a transport suited to
// many short-lived connections against LAN devices
func NewClient() *Client {
	transport := &http.Transport{
		// LAN devices are never reached through a proxy
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout: DefaultTimeout,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		Port:                  DefaultPort,
		HTTPClient:            &http.Client{Transport: transport},
		Timeout:               DefaultTimeout,
		UploadTimeout:         DefaultUploadTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the per-call timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Timeout = timeout
}

// SetRetry configures download retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// BaseURL returns the HTTP base URL for a device address
func (c *Client) BaseURL(address string) string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return "http://" + net.JoinHostPort(address, strconv.Itoa(port))
}

// SendCommand runs a console command through GET /cm and parses the JSON reply.
// Transport errors, timeouts, non-2xx replies, and non-JSON bodies all give a
// nil Response and an unreachable error.
func (c *Client) SendCommand(ctx context.Context, address, command string) (*Response, error) {
	const op = "GET /cm"

	query := url.Values{"cmnd": {command}}
	status, body, err := c.do(ctx, address, http.MethodGet, "/cm?"+query.Encode(), nil, "", c.Timeout)
	if err != nil {
		devErr := ClassifyNetworkError(err, address)
		devErr.Op = op
		return nil, devErr
	}

	if !isSuccess(status) {
		return nil, newStatusError(KindUnreachable, op, address, status)
	}

	resp, err := ParseResponse(body)
	if err != nil {
		return nil, &DeviceError{
			Kind:    KindUnreachable,
			Op:      op,
			Message: "device reply is not JSON",
			Err:     err,
			Address: address,
		}
	}

	return resp, nil
}

// Ping checks that the device answers a status query
func (c *Client) Ping(ctx context.Context, address string) error {
	_, err := c.SendCommand(ctx, address, "Status 0")
	return err
}

// DownloadConfig fetches the binary configuration dump through GET /dl
func (c *Client) DownloadConfig(ctx context.Context, address string) ([]byte, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, newTransportError(KindBackupFailed, "GET /dl", address, "download cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		config, err := c.downloadAttempt(ctx, address)
		if err == nil {
			return config, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// downloadAttempt performs a single configuration download
func (c *Client) downloadAttempt(ctx context.Context, address string) ([]byte, error) {
	const op = "GET /dl"

	status, body, err := c.do(ctx, address, http.MethodGet, "/dl", nil, "", c.Timeout)
	if err != nil {
		return nil, newTransportError(KindBackupFailed, op, address, "download request failed", err)
	}

	if !isSuccess(status) {
		return nil, newStatusError(KindBackupFailed, op, address, status)
	}

	return body, nil
}

// UploadConfig restores a configuration dump. It first calls GET /rs? to put
// the device into upload mode, then posts the dump as multipart field "u2" to
// /u2. The restore counts only when the reply contains "Successful". A failed
// upload after a successful reset is reported as-is; nothing is undone.
func (c *Client) UploadConfig(ctx context.Context, address string, config []byte) error {
	// The reset reply is ignored; only a transport failure stops the restore
	if _, _, err := c.do(ctx, address, http.MethodGet, "/rs?", nil, "", c.Timeout); err != nil {
		return newTransportError(KindRestoreFailed, "GET /rs", address, "reset request failed", err)
	}

	const op = "POST /u2"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadField, uploadField)
	if err != nil {
		return NewRestoreError(address, "failed to build upload form", err)
	}
	if _, err := part.Write(config); err != nil {
		return NewRestoreError(address, "failed to build upload form", err)
	}
	if err := writer.Close(); err != nil {
		return NewRestoreError(address, "failed to build upload form", err)
	}

	status, body, err := c.do(ctx, address, http.MethodPost, "/u2", &buf, writer.FormDataContentType(), c.UploadTimeout)
	if err != nil {
		return newTransportError(KindRestoreFailed, op, address, "upload request failed", err)
	}

	if !isSuccess(status) {
		return newStatusError(KindRestoreFailed, op, address, status)
	}

	if !bytes.Contains(body, []byte(UploadSuccessMarker)) {
		return &DeviceError{
			Kind:    KindRestoreFailed,
			Op:      op,
			Message: fmt.Sprintf("upload not accepted: %s", summarize(body)),
			Address: address,
		}
	}

	return nil
}

// do performs one HTTP call bounded by timeout and returns the status and body
func (c *Client) do(ctx context.Context, address, method, path string, body io.Reader, contentType string, timeout time.Duration) (int, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL(address)+path, body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogHTTPExchange(address, method, path, 0, time.Since(start), err)
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	logging.LogHTTPExchange(address, method, path, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// isRetryable reports whether a failed download is worth another attempt
func isRetryable(err error) bool {
	devErr, ok := err.(*DeviceError)
	if !ok {
		return false
	}
	if devErr.StatusCode != 0 {
		return devErr.StatusCode >= 500
	}
	return devErr.NetworkSubtype != NetworkErrorNone && devErr.NetworkSubtype != NetworkErrorDNS
}

// summarize shortens a reply body for error messages
func summarize(body []byte) string {
	const limit = 80
	text := string(bytes.TrimSpace(body))
	if text == "" {
		return "empty reply"
	}
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

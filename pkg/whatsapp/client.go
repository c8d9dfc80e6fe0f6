package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cocotrade/ops-backend/pkg/config"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

var (
	errBaseURLRequired = errors.New("whatsapp gateway base url is required")
	errLoggerRequired  = errors.New("whatsapp logger is required")
)

// Session describes one gateway session slot.
type Session struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
	Phone     string `json:"phone,omitempty"`
}

// SendTextRequest is the payload for a single text message.
type SendTextRequest struct {
	Session string `json:"session"`
	To      string `json:"to"`
	Text    string `json:"text"`
}

// Client talks to the self-hosted WhatsApp gateway over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient initializes the gateway wrapper and validates its configuration.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// Sessions lists the gateway sessions. A gateway that is down yields an empty
// list rather than an error so the dashboard stays usable.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	err := c.doJSON(ctx, http.MethodGet, "/whatsapp/sessions", nil, &sessions)
	if err != nil {
		if isConnectionError(err) {
			c.logger.Warn(ctx, "whatsapp gateway unreachable, returning empty session list")
			return []Session{}, nil
		}
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// CreateSession registers a new session slot on the gateway.
func (c *Client) CreateSession(ctx context.Context, id string) error {
	body := map[string]string{"id": strings.TrimSpace(id)}
	return c.doJSON(ctx, http.MethodPost, "/whatsapp/create-session", body, nil)
}

// StartSession begins the login flow for a session.
func (c *Client) StartSession(ctx context.Context, id string) error {
	body := map[string]string{"id": strings.TrimSpace(id)}
	return c.doJSON(ctx, http.MethodPost, "/whatsapp/start-session", body, nil)
}

// QRString fetches the pairing QR payload for a session awaiting login.
func (c *Client) QRString(ctx context.Context, id string) (string, error) {
	var resp struct {
		QR string `json:"qr"`
	}
	path := "/whatsapp/qr-string/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.QR, nil
}

// Status reports the connection state of a session.
func (c *Client) Status(ctx context.Context, id string) (*Session, error) {
	var session Session
	path := "/whatsapp/status/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session from the gateway.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := "/whatsapp/delete-session/" + url.PathEscape(strings.TrimSpace(id))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// SendText delivers one text message through the given session.
func (c *Client) SendText(ctx context.Context, req SendTextRequest) error {
	if strings.TrimSpace(req.Session) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if strings.TrimSpace(req.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination phone is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	return c.doJSON(ctx, http.MethodPost, "/message/send-text", req, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding gateway request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building gateway request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling whatsapp gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return gatewayError(resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	return nil
}

func gatewayError(status int, payload []byte) error {
	message := strings.TrimSpace(string(payload))
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "whatsapp session not found")
	case status >= 400 && status < 500:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("whatsapp gateway rejected request: %s", message))
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("whatsapp gateway error (%d): %s", status, message))
	}
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

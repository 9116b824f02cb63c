// Package aaclient implements aa.SDK over the AA gateway's REST API.
package aaclient

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

	"github.com/zmrishh/moneyai/internal/aa"
)

// SessionHeader carries the gateway session reference issued by Connect.
const SessionHeader = "X-AA-Session"

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// GatewayError is a structured error payload returned by the gateway.
// Error() is the gateway's message verbatim so journey state carries the
// exact text the gateway reported.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Unwrap maps HTTP status classes onto sentinels so callers can branch
// with errors.Is without losing the verbatim message.
func (e *GatewayError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client is an HTTP client for the AA gateway. The zero lifecycle is
// InitializeWith, Connect, the journey calls, Disconnect.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client

	// session is captured from Connect and replayed on every later call.
	// The journey serializes SDK calls, so no lock is needed.
	session string
}

var _ aa.SDK = (*Client)(nil)

// New creates an AA gateway client. Endpoint and credentials arrive later
// via InitializeWith.
func New() *Client {
	return &Client{
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

// InitializeWith validates the SDK configuration, points the client at the
// gateway, and pings it to confirm the endpoint and API key are usable.
func (c *Client) InitializeWith(ctx context.Context, cfg aa.Config) error {
	if cfg.GatewayURL == "" {
		return fmt.Errorf("gateway url required")
	}
	if _, err := url.ParseRequestURI(cfg.GatewayURL); err != nil {
		return fmt.Errorf("invalid gateway url %q: %w", cfg.GatewayURL, err)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api key required")
	}

	c.BaseURL = strings.TrimRight(cfg.GatewayURL, "/")
	c.APIKey = cfg.APIKey
	c.DeviceID = cfg.DeviceID

	return c.do(ctx, "GET", "/v1/ping", nil, nil)
}

type connectResponse struct {
	SessionID string `json:"session_id"`
}

// Connect opens a gateway session. The session reference arrives in the
// X-AA-Session response header (and body) and rides along on every
// subsequent call.
func (c *Client) Connect(ctx context.Context) error {
	var resp connectResponse
	if err := c.do(ctx, "POST", "/v1/session/connect", nil, &resp); err != nil {
		return err
	}
	if c.session == "" && resp.SessionID != "" {
		c.session = resp.SessionID
	}
	return nil
}

// Disconnect closes the gateway session and drops the session reference.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.do(ctx, "POST", "/v1/session/disconnect", nil, nil)
	c.session = ""
	return err
}

type loginRequest struct {
	Username        string `json:"username,omitempty"`
	MobileNumber    string `json:"mobile_number"`
	ConsentHandleID string `json:"consent_handle_id"`
}

type loginResponse struct {
	OTPReference string `json:"otp_reference"`
}

// LoginWithUsernameOrMobileNumber starts gateway authentication and returns
// the OTP reference for VerifyLoginOtp.
func (c *Client) LoginWithUsernameOrMobileNumber(ctx context.Context, username, mobileNumber, consentHandleID string) (string, error) {
	body := loginRequest{
		Username:        username,
		MobileNumber:    mobileNumber,
		ConsentHandleID: consentHandleID,
	}
	var resp loginResponse
	if err := c.do(ctx, "POST", "/v1/auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.OTPReference, nil
}

type verifyRequest struct {
	OTP          string `json:"otp"`
	OTPReference string `json:"otp_reference"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
}

// VerifyLoginOtp exchanges the OTP for an authenticated gateway user.
func (c *Client) VerifyLoginOtp(ctx context.Context, otp, otpReference string) (string, error) {
	body := verifyRequest{OTP: otp, OTPReference: otpReference}
	var resp verifyResponse
	if err := c.do(ctx, "POST", "/v1/auth/verify", body, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// Logout ends gateway authentication for the current user.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/v1/auth/logout", nil, nil)
}

// FipsAllFIPOptions lists the financial information providers available for
// linking.
func (c *Client) FipsAllFIPOptions(ctx context.Context) ([]aa.FIP, error) {
	var resp []aa.FIP
	if err := c.do(ctx, "GET", "/v1/fips", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FetchFipDetails returns a provider's identifier requirements.
func (c *Client) FetchFipDetails(ctx context.Context, fipID string) (*aa.FIPDetails, error) {
	var resp aa.FIPDetails
	if err := c.do(ctx, "GET", "/v1/fips/"+url.PathEscape(fipID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type discoverRequest struct {
	Identifiers []aa.Identifier `json:"identifiers"`
}

type discoverResponse struct {
	Accounts []aa.DiscoveredAccount `json:"accounts"`
}

// DiscoverAccounts asks a FIP for the accounts matching the supplied
// identifiers.
func (c *Client) DiscoverAccounts(ctx context.Context, fipID string, identifiers []aa.Identifier) ([]aa.DiscoveredAccount, error) {
	body := discoverRequest{Identifiers: identifiers}
	var resp discoverResponse
	if err := c.do(ctx, "POST", "/v1/fips/"+url.PathEscape(fipID)+"/discover", body, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

type linkRequest struct {
	FIPID    string                 `json:"fip_id"`
	Accounts []aa.DiscoveredAccount `json:"accounts"`
}

type linkResponse struct {
	LinkReference string `json:"link_reference"`
}

// LinkAccounts requests linking for the chosen accounts and returns the
// link reference consumed by ConfirmAccountLinking.
func (c *Client) LinkAccounts(ctx context.Context, fipID string, accounts []aa.DiscoveredAccount) (string, error) {
	body := linkRequest{FIPID: fipID, Accounts: accounts}
	var resp linkResponse
	if err := c.do(ctx, "POST", "/v1/accounts/link", body, &resp); err != nil {
		return "", err
	}
	return resp.LinkReference, nil
}

type confirmLinkRequest struct {
	OTP           string `json:"otp"`
	LinkReference string `json:"link_reference"`
}

// ConfirmAccountLinking confirms the pending link with the linking OTP.
func (c *Client) ConfirmAccountLinking(ctx context.Context, otp, linkReference string) error {
	body := confirmLinkRequest{OTP: otp, LinkReference: linkReference}
	return c.do(ctx, "POST", "/v1/accounts/link/confirm", body, nil)
}

// FetchLinkedAccounts lists accounts linked for the authenticated user.
func (c *Client) FetchLinkedAccounts(ctx context.Context) ([]aa.LinkedAccount, error) {
	var resp []aa.LinkedAccount
	if err := c.do(ctx, "GET", "/v1/accounts/linked", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetConsentRequestDetails fetches the consent terms for review.
func (c *Client) GetConsentRequestDetails(ctx context.Context, consentHandleID string) (*aa.ConsentDetails, error) {
	var resp aa.ConsentDetails
	if err := c.do(ctx, "GET", "/v1/consents/"+url.PathEscape(consentHandleID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type approveRequest struct {
	Accounts []aa.LinkedAccount `json:"accounts"`
}

type approveResponse struct {
	ConsentID string `json:"consent_id"`
}

// ApproveConsentRequest grants the consent over the chosen linked accounts
// and returns the issued consent ID.
func (c *Client) ApproveConsentRequest(ctx context.Context, details *aa.ConsentDetails, accounts []aa.LinkedAccount) (string, error) {
	if details == nil {
		return "", fmt.Errorf("consent details required")
	}
	body := approveRequest{Accounts: accounts}
	var resp approveResponse
	if err := c.do(ctx, "POST", "/v1/consents/"+url.PathEscape(details.ConsentHandle)+"/approve", body, &resp); err != nil {
		return "", err
	}
	return resp.ConsentID, nil
}

// DenyConsentRequest rejects the consent request.
func (c *Client) DenyConsentRequest(ctx context.Context, details *aa.ConsentDetails) error {
	if details == nil {
		return fmt.Errorf("consent details required")
	}
	return c.do(ctx, "POST", "/v1/consents/"+url.PathEscape(details.ConsentHandle)+"/deny", nil, nil)
}

// --- HTTP helpers ---

// errorEnvelope is the gateway's error body: {"error": {"code", "message"}}.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if s := resp.Header.Get(SessionHeader); s != "" {
		c.session = s
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope errorEnvelope
		if json.Unmarshal(respBody, &envelope) == nil && (envelope.Error.Code != "" || envelope.Error.Message != "") {
			return &GatewayError{
				Code:       envelope.Error.Code,
				Message:    envelope.Error.Message,
				StatusCode: resp.StatusCode,
			}
		}
		return fmt.Errorf("gateway HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

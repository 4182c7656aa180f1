// Package xui talks to the 3x-ui panel that actually provisions network
// credentials.  The panel is addressed per inbound pool: one inbound for
// the timed tier, another for the unlimited tier.  Clients inside an
// inbound are keyed by an "email" field, which this system always sets to
// the user's public id, so nothing the panel stores can be traced back to
// a real chat identity.
package xui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports that the addressed client no longer exists in the
// panel.  Callers doing best-effort cleanup treat it as success; the renew
// path treats it as the trigger for full recreation.
var ErrNotFound = errors.New("xui: client not found")

// Credential is the result of provisioning a client in the panel.
type Credential struct {
	ClientID string // the client's UUID inside the inbound
	Email    string // the public id in text form
	Link     string // the full VLESS connection link handed to the user
}

// Client is an HTTP client for the panel API.  Login uses a session
// cookie, so the client carries a jar and re-authenticates on every
// operation; panel sessions are short and the operations are rare.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

const requestTimeout = 20 * time.Second

func NewClient(baseURL, username, password string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout, Jar: jar},
	}
}

// panelResponse is the envelope the panel wraps API results in.
type panelResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg,omitempty"`
	Obj     json.RawMessage `json:"obj,omitempty"`
}

// inbound is the slice of an inbound object this package reads.
type inbound struct {
	ID             int    `json:"id"`
	Port           int    `json:"port"`
	Settings       string `json:"settings"`       // JSON string holding clients
	StreamSettings string `json:"streamSettings"` // JSON string holding reality params
}

type inboundClient struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	ExpiryTime int64  `json:"expiryTime"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	TgID       int64  `json:"tgId"`
	Reset      int    `json:"reset"`
	Flow       string `json:"flow"`
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("xui: login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("xui: login failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getInbound(ctx context.Context, inboundID int) (inbound, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/panel/api/inbounds/list", nil)
	if err != nil {
		return inbound{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return inbound{}, fmt.Errorf("xui: list inbounds: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return inbound{}, fmt.Errorf("xui: list inbounds failed with status %d", resp.StatusCode)
	}

	var envelope panelResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return inbound{}, fmt.Errorf("xui: decode inbound list: %w", err)
	}
	if !envelope.Success {
		return inbound{}, fmt.Errorf("xui: list inbounds rejected: %s", envelope.Msg)
	}

	var inbounds []inbound
	if err := json.Unmarshal(envelope.Obj, &inbounds); err != nil {
		return inbound{}, fmt.Errorf("xui: decode inbounds: %w", err)
	}
	for _, ib := range inbounds {
		if ib.ID == inboundID {
			return ib, nil
		}
	}
	return inbound{}, fmt.Errorf("xui: inbound %d not found", inboundID)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	var body strings.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = *strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("xui: POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("xui: POST %s failed with status %d", path, resp.StatusCode)
	}

	var envelope panelResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		// Some panel builds answer with an empty body on success.
		return nil
	}
	if !envelope.Success {
		return fmt.Errorf("xui: POST %s rejected: %s", path, envelope.Msg)
	}
	return nil
}

// CreateClient provisions a new client in the given inbound pool.
// expiryMillis of zero means no expiry (the unlimited pool); otherwise it
// is an epoch-milliseconds timestamp.  The tag only decorates the link's
// display name.  Retrying after a network failure may leave a duplicate
// client behind; the panel does not promise idempotency and duplicates are
// an accepted cost, not an error.
func (c *Client) CreateClient(ctx context.Context, publicID int64, expiryMillis int64, tag string, inboundID int) (Credential, error) {
	if err := c.login(ctx); err != nil {
		return Credential{}, err
	}
	ib, err := c.getInbound(ctx, inboundID)
	if err != nil {
		return Credential{}, err
	}

	var stream struct {
		RealitySettings struct {
			Settings struct {
				PublicKey string `json:"publicKey"`
			} `json:"settings"`
			ShortIDs []string `json:"shortIds"`
		} `json:"realitySettings"`
	}
	if err := json.Unmarshal([]byte(ib.StreamSettings), &stream); err != nil {
		return Credential{}, fmt.Errorf("xui: decode stream settings: %w", err)
	}
	if len(stream.RealitySettings.ShortIDs) == 0 {
		return Credential{}, fmt.Errorf("xui: inbound %d has no reality short ids", inboundID)
	}

	clientID := uuid.NewString()
	email := strconv.FormatInt(publicID, 10)
	newClient := inboundClient{
		ID:         clientID,
		Email:      email,
		Enable:     true,
		ExpiryTime: expiryMillis,
		Flow:       "xtls-rprx-vision",
	}

	settings, err := json.Marshal(map[string]any{"clients": []inboundClient{newClient}})
	if err != nil {
		return Credential{}, err
	}
	payload := map[string]any{"id": inboundID, "settings": string(settings)}
	if err := c.postJSON(ctx, "/panel/api/inbounds/addClient", payload); err != nil {
		return Credential{}, err
	}

	link := buildVlessLink(clientID, c.host(), ib.Port, tag, publicID,
		stream.RealitySettings.Settings.PublicKey, stream.RealitySettings.ShortIDs[0])
	return Credential{ClientID: clientID, Email: email, Link: link}, nil
}

// RenewClient advances only the expiry of the client addressed by email,
// preserving its UUID and therefore the user's connection link.  Returns
// ErrNotFound when no client with that email exists in the inbound.
func (c *Client) RenewClient(ctx context.Context, email string, inboundID int, expiryMillis int64) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	existing, err := c.findClient(ctx, email, inboundID)
	if err != nil {
		return err
	}

	existing.ExpiryTime = expiryMillis
	settings, err := json.Marshal(map[string]any{"clients": []inboundClient{existing}})
	if err != nil {
		return err
	}
	payload := map[string]any{"id": inboundID, "settings": string(settings)}
	return c.postJSON(ctx, "/panel/api/inbounds/updateClient/"+existing.ID, payload)
}

// DeleteClient removes the client addressed by email from the inbound.
// Returns ErrNotFound when it is already gone.
func (c *Client) DeleteClient(ctx context.Context, email string, inboundID int) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	existing, err := c.findClient(ctx, email, inboundID)
	if err != nil {
		return err
	}
	return c.postJSON(ctx,
		fmt.Sprintf("/panel/api/inbounds/%d/delClient/%s", inboundID, existing.ID), nil)
}

func (c *Client) findClient(ctx context.Context, email string, inboundID int) (inboundClient, error) {
	ib, err := c.getInbound(ctx, inboundID)
	if err != nil {
		return inboundClient{}, err
	}
	var settings struct {
		Clients []inboundClient `json:"clients"`
	}
	if err := json.Unmarshal([]byte(ib.Settings), &settings); err != nil {
		return inboundClient{}, fmt.Errorf("xui: decode inbound settings: %w", err)
	}
	for _, cl := range settings.Clients {
		if cl.Email == email {
			return cl, nil
		}
	}
	return inboundClient{}, fmt.Errorf("%w: %s in inbound %d", ErrNotFound, email, inboundID)
}

// host strips scheme and port from the configured base URL; the panel's
// own address is where clients connect.
func (c *Client) host() string {
	h := strings.TrimPrefix(strings.TrimPrefix(c.baseURL, "https://"), "http://")
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}

// buildVlessLink assembles the VLESS Reality connection link for a client.
func buildVlessLink(clientID, host string, port int, tag string, publicID int64, pbk, sid string) string {
	return fmt.Sprintf(
		"vless://%s@%s:%d?type=tcp&encryption=none&security=reality&pbk=%s&fp=chrome&sni=google.com&sid=%s&spx=%%2F&flow=xtls-rprx-vision#Kynix-VPN-%s-%d",
		clientID, host, port, pbk, sid, tag, publicID)
}

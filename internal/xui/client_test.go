package xui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePanel is a minimal 3x-ui stand-in: one inbound per tier, clients
// tracked in memory.
type fakePanel struct {
	t        *testing.T
	loggedIn bool
	clients  map[int][]inboundClient // inboundID -> clients
	added    []inboundClient
	deleted  []string
	updated  []inboundClient
}

func newFakePanel(t *testing.T) (*fakePanel, *httptest.Server) {
	p := &fakePanel{t: t, clients: map[int][]inboundClient{1: {}, 2: {}}}
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.FormValue("username") != "admin" || r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p.loggedIn = true
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/panel/api/inbounds/list", func(w http.ResponseWriter, r *http.Request) {
		type rawInbound struct {
			ID             int    `json:"id"`
			Port           int    `json:"port"`
			Settings       string `json:"settings"`
			StreamSettings string `json:"streamSettings"`
		}
		stream := `{"realitySettings":{"settings":{"publicKey":"PBK"},"shortIds":["SID1","SID2"]}}`
		var obj []rawInbound
		for id, clients := range p.clients {
			settings, _ := json.Marshal(map[string]any{"clients": clients})
			obj = append(obj, rawInbound{ID: id, Port: 443, Settings: string(settings), StreamSettings: stream})
		}
		writeJSON(w, map[string]any{"success": true, "obj": obj})
	})

	mux.HandleFunc("/panel/api/inbounds/addClient", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID       int    `json:"id"`
			Settings string `json:"settings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var settings struct {
			Clients []inboundClient `json:"clients"`
		}
		require.NoError(t, json.Unmarshal([]byte(req.Settings), &settings))
		p.clients[req.ID] = append(p.clients[req.ID], settings.Clients...)
		p.added = append(p.added, settings.Clients...)
		writeJSON(w, map[string]any{"success": true})
	})

	mux.HandleFunc("/panel/api/inbounds/updateClient/", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID       int    `json:"id"`
			Settings string `json:"settings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var settings struct {
			Clients []inboundClient `json:"clients"`
		}
		require.NoError(t, json.Unmarshal([]byte(req.Settings), &settings))
		p.updated = append(p.updated, settings.Clients...)
		writeJSON(w, map[string]any{"success": true})
	})

	mux.HandleFunc("/panel/api/inbounds/", func(w http.ResponseWriter, r *http.Request) {
		// .../{inbound}/delClient/{uuid}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		p.deleted = append(p.deleted, parts[len(parts)-1])
		writeJSON(w, map[string]any{"success": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return p, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateClient(t *testing.T) {
	panel, srv := newFakePanel(t)
	c := NewClient(srv.URL, "admin", "secret")

	cred, err := c.CreateClient(context.Background(), 12345678, 1750000000000, "Plus", 1)
	require.NoError(t, err)

	assert.True(t, panel.loggedIn)
	assert.Equal(t, "12345678", cred.Email)
	require.Len(t, panel.added, 1)
	assert.Equal(t, int64(1750000000000), panel.added[0].ExpiryTime)
	assert.True(t, panel.added[0].Enable)
	assert.Equal(t, "xtls-rprx-vision", panel.added[0].Flow)

	// Link carries the client uuid, reality params and the public id tag.
	assert.Contains(t, cred.Link, "vless://"+cred.ClientID+"@")
	assert.Contains(t, cred.Link, "pbk=PBK")
	assert.Contains(t, cred.Link, "sid=SID1")
	assert.Contains(t, cred.Link, "#Kynix-VPN-Plus-12345678")
}

func TestCreateClient_UnlimitedHasZeroExpiry(t *testing.T) {
	panel, srv := newFakePanel(t)
	c := NewClient(srv.URL, "admin", "secret")

	_, err := c.CreateClient(context.Background(), 12345678, 0, "Inf", 2)
	require.NoError(t, err)
	require.Len(t, panel.added, 1)
	assert.Zero(t, panel.added[0].ExpiryTime)
}

func TestRenewClient_PreservesUUID(t *testing.T) {
	panel, srv := newFakePanel(t)
	panel.clients[1] = []inboundClient{{ID: "uuid-1", Email: "12345678", ExpiryTime: 1}}
	c := NewClient(srv.URL, "admin", "secret")

	err := c.RenewClient(context.Background(), "12345678", 1, 99)
	require.NoError(t, err)
	require.Len(t, panel.updated, 1)
	assert.Equal(t, "uuid-1", panel.updated[0].ID)
	assert.Equal(t, int64(99), panel.updated[0].ExpiryTime)
}

func TestRenewClient_NotFound(t *testing.T) {
	_, srv := newFakePanel(t)
	c := NewClient(srv.URL, "admin", "secret")

	err := c.RenewClient(context.Background(), "00000000", 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteClient(t *testing.T) {
	panel, srv := newFakePanel(t)
	panel.clients[1] = []inboundClient{{ID: "uuid-9", Email: "87654321"}}
	c := NewClient(srv.URL, "admin", "secret")

	require.NoError(t, c.DeleteClient(context.Background(), "87654321", 1))
	assert.Equal(t, []string{"uuid-9"}, panel.deleted)
}

func TestDeleteClient_NotFound(t *testing.T) {
	_, srv := newFakePanel(t)
	c := NewClient(srv.URL, "admin", "secret")

	err := c.DeleteClient(context.Background(), "87654321", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginFailure(t *testing.T) {
	_, srv := newFakePanel(t)
	c := NewClient(srv.URL, "admin", "wrong")

	_, err := c.CreateClient(context.Background(), 12345678, 0, "Plus", 1)
	assert.Error(t, err)
}

func TestHostStripping(t *testing.T) {
	cases := map[string]string{
		"https://vpn.example.com":     "vpn.example.com",
		"http://1.2.3.4:2053":         "1.2.3.4",
		"https://vpn.example.com/app": "vpn.example.com",
	}
	for base, want := range cases {
		c := NewClient(base, "u", "p")
		assert.Equal(t, want, c.host(), base)
	}
}

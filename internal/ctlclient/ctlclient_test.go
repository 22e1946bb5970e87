package ctlclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStartSuccess(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]interface{}{"status": 0})
	resp, err := New(srv.URL).Start("orders")
	require.NoError(t, err)
	require.Equal(t, 0, resp.Status)
}

func TestStartNonOKReturnsAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusNotFound, map[string]interface{}{"status": 404})
	_, err := New(srv.URL).Start("orders")
	require.Error(t, err)

	apiErr, ok := err.(APIError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)
	require.Equal(t, 404, apiErr.Status)
}

func TestAddConnInfoSendsBody(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/connectors", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 0})
	}))
	defer srv.Close()

	cfg := map[string]interface{}{"Name": "orders", "Host": "db.example.com"}
	resp, err := New(srv.URL).AddConnInfo(cfg)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Status)
	require.Equal(t, "orders", received["Name"])
	require.Equal(t, "db.example.com", received["Host"])
}

func TestDeleteConnInfoUsesDeleteMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/api/v1/connectors/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 0})
	}))
	defer srv.Close()

	resp, err := New(srv.URL).DeleteConnInfo("orders")
	require.NoError(t, err)
	require.Equal(t, 0, resp.Status)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/connectors/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"Name": "orders", "State": "syncing"})
	}))
	defer srv.Close()

	snap, err := New(srv.URL).Status("orders")
	require.NoError(t, err)
	require.Equal(t, "orders", snap["Name"])
	require.Equal(t, "syncing", snap["State"])
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/connectors", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"connectors": []string{"orders", "customers"}})
	}))
	defer srv.Close()

	names, err := New(srv.URL).List()
	require.NoError(t, err)
	require.Equal(t, []string{"orders", "customers"}, names)
}

func TestSetOffsetSendsOffsetField(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/connectors/orders/set_offset", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 0})
	}))
	defer srv.Close()

	_, err := New(srv.URL).SetOffset("orders", "offset-42")
	require.NoError(t, err)
	require.Equal(t, "offset-42", received["offset"])
}

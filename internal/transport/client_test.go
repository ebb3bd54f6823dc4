package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lookersync/pkg/errors"
)

func TestClientURL(t *testing.T) {
	c := New("https://dev.looker.com:19999/api/3.1/", nil)

	assert.Equal(t, "https://dev.looker.com:19999/api/3.1", c.BaseURL())
	assert.Equal(t, "https://dev.looker.com:19999/api/3.1/groups", c.URL("/groups", nil))
	assert.Equal(t, "https://dev.looker.com:19999/api/3.1/groups?fields=id%2Cname",
		c.URL("groups", url.Values{"fields": {"id,name"}}))
}

func TestClientGetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "id,name", r.URL.Query().Get("fields"))
		w.Write([]byte(`[{"id":1,"name":"All Users"}]`))
	}))
	defer server.Close()

	c := New(server.URL, NewTokenAuth("secret"))
	resp, err := c.Get(context.Background(), "/groups", url.Values{"fields": {"id,name"}})
	require.NoError(t, err)

	var groups []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, DecodeResponse(resp, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "All Users", groups[0].Name)
}

func TestClientSendJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"type":"string","default_value":"gold"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, nil)
	resp, err := c.SendJSON(context.Background(), http.MethodPatch, "/user_attributes/5", map[string]string{
		"type":          "string",
		"default_value": "gold",
	})
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, nil))
}

func TestClientPostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	resp, err := c.PostForm(context.Background(), "/login", url.Values{"client_id": {"id"}})
	require.NoError(t, err)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, DecodeResponse(resp, &out))
	assert.Equal(t, "tok", out.AccessToken)
}

func TestDecodeResponseErrors(t *testing.T) {
	t.Run("API error with Looker message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"Validation Failed","documentation_url":"x"}`))
		}))
		defer server.Close()

		resp, err := New(server.URL, nil).Get(context.Background(), "/user_attributes", nil)
		require.NoError(t, err)

		err = DecodeResponse(resp, &struct{}{})
		var apiErr *errors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, "Validation Failed", apiErr.Message)
		assert.Equal(t, "GET /user_attributes", apiErr.Endpoint)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		resp, err := New(server.URL, nil).Get(context.Background(), "/groups", nil)
		require.NoError(t, err)

		_, err = ReadText(resp)
		assert.True(t, errors.IsInstanceUnavailable(err))
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		resp, err := New(server.URL, nil).Get(context.Background(), "/groups", nil)
		require.NoError(t, err)

		var parseErr *errors.ParseError
		require.ErrorAs(t, DecodeResponse(resp, &[]int{}), &parseErr)
		assert.Equal(t, "json", parseErr.Format)
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(server.URL, nil).Get(ctx, "/groups", nil)
		assert.True(t, errors.IsCanceled(err))
	})
}

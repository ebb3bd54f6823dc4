package lookertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/agentstation/lookersync/internal/looker"
)

// APIPath is the path prefix the test server mounts the API under.
const APIPath = "/api/3.1"

// Test credentials accepted by NewServer.
const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	AccessToken  = "test-access-token"
)

// NewServer exposes f over the Looker REST API. The returned server's
// URL plus APIPath is the instance base URL. Only ClientID/ClientSecret
// can log in.
func NewServer(f *Fake) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+APIPath+"/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("client_id") != ClientID || r.FormValue("client_secret") != ClientSecret {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		writeJSON(w, looker.AccessToken{AccessToken: AccessToken, TokenType: "Bearer", ExpiresIn: 3600})
	})
	mux.HandleFunc("DELETE "+APIPath+"/logout", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET "+APIPath+"/looks/{id}/run/{format}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad look id")
			return
		}
		text, err := f.RunLook(r.Context(), id, r.PathValue("format"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(text))
	}))
	mux.HandleFunc("GET "+APIPath+"/groups", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(f.AllGroups(r.Context(), r.URL.Query().Get("fields")))(w)
	}))
	mux.HandleFunc("POST "+APIPath+"/groups", authed(func(w http.ResponseWriter, r *http.Request) {
		var body looker.WriteGroup
		if !decode(w, r, &body) {
			return
		}
		reply(f.CreateGroup(r.Context(), body))(w)
	}))
	mux.HandleFunc("GET "+APIPath+"/user_attributes", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(f.AllUserAttributes(r.Context()))(w)
	}))
	mux.HandleFunc("POST "+APIPath+"/user_attributes", authed(func(w http.ResponseWriter, r *http.Request) {
		var body looker.WriteUserAttribute
		if !decode(w, r, &body) {
			return
		}
		reply(f.CreateUserAttribute(r.Context(), body))(w)
	}))
	mux.HandleFunc("PATCH "+APIPath+"/user_attributes/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var body looker.UserAttributeUpdate
		if !decode(w, r, &body) {
			return
		}
		reply(f.UpdateUserAttribute(r.Context(), id, body))(w)
	}))
	mux.HandleFunc("POST "+APIPath+"/user_attributes/{id}/group_values", authed(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var body []looker.GroupValue
		if !decode(w, r, &body) {
			return
		}
		reply(f.SetUserAttributeGroupValues(r.Context(), id, body))(w)
	}))

	return httptest.NewServer(mux)
}

func authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token "+AccessToken {
			writeError(w, http.StatusUnauthorized, "Requires authentication.")
			return
		}
		next(w, r)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (looker.ID, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return 0, false
	}
	return looker.ID(id), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// reply writes v, or a 422 when the fake returned an error.
func reply(v any, err error) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, v)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

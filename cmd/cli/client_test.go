package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cpcoders/codetrack/internal/convert"
)

func TestClient_LoginAndAuthHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["email"] != "ada@example.com" {
				t.Errorf("unexpected login body: %v", in)
			}
			_ = json.NewEncoder(w).Encode(loginResult{
				AccessToken: "tok",
				User:        convert.UserDTO{Username: "ada", Email: "ada@example.com"},
			})
		case "/api/profile":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			_ = json.NewEncoder(w).Encode(convert.UserDTO{Username: "ada"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	res, err := newClient(srv.URL, "").login(ctx, "ada@example.com", "pw")
	if err != nil || res.AccessToken != "tok" {
		t.Fatalf("login: res=%+v err=%v", res, err)
	}

	u, err := newClient(srv.URL, "tok").profile(ctx)
	if err != nil || u.Username != "ada" {
		t.Fatalf("profile: u=%+v err=%v", u, err)
	}

	if _, err := newClient(srv.URL, "wrong").profile(ctx); err == nil {
		t.Fatalf("want error on 401")
	}
}

func TestClient_ErrorBodySurfaced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "question already exists in this collection"})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "t").upsertQuest(context.Background(), convert.QuestionInputDTO{})
	var ae *apiError
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		t.Fatalf("want apiError 400, got %v", err)
	}
	if ae.Msg != "question already exists in this collection" {
		t.Fatalf("server message lost: %q", ae.Msg)
	}
}

func TestClient_ListQueryForwarded(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(listResult{})
	}))
	defer srv.Close()

	q := url.Values{}
	q.Set("status", "solved")
	q.Set("page", "2")
	if _, err := newClient(srv.URL, "t").listQuests(context.Background(), q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery.Get("status") != "solved" || gotQuery.Get("page") != "2" {
		t.Fatalf("query not forwarded: %v", gotQuery)
	}
}

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"despesas/internal/core"
)

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/sync" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"expenses": [{"id":"x1","name":"Rent","dueDate":"2026-01-05","value":1000,"category":"Infra","status":"Active"}],
			"revenue": 5000,
			"revenueDate": "2026-01-31"
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	payload, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(payload.Expenses) != 1 || payload.Expenses[0].ID != "x1" {
		t.Errorf("expenses = %+v, want one with id x1", payload.Expenses)
	}
	if payload.Expenses[0].Value.Cents != 100000 {
		t.Errorf("value = %d cents, want 100000", payload.Expenses[0].Value.Cents)
	}
	if payload.Revenue == nil || payload.Revenue.Cents != 500000 {
		t.Errorf("revenue = %+v, want 500000 cents", payload.Revenue)
	}
	if payload.RevenueDate == nil || *payload.RevenueDate != "2026-01-31" {
		t.Errorf("revenueDate = %+v, want 2026-01-31", payload.RevenueDate)
	}
	// Fields the endpoint omitted must come back absent, not zeroed.
	if payload.FilterStartDate != nil {
		t.Errorf("filterStartDate = %+v, want nil", payload.FilterStartDate)
	}
}

func TestFetchAllNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"connection string missing"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	_, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error on 500, got nil")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if statusErr.Status != http.StatusInternalServerError || statusErr.Detail != "connection string missing" {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestFetchAllUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("expected transport error, got nil")
	}
}

func TestPushAll(t *testing.T) {
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	revenue := core.Money{Cents: 500000}
	start := core.Date("2026-01-01")
	payload := Payload{
		Expenses:        []core.Expense{{ID: "x1", Name: "Rent", DueDate: "2026-01-05", Value: core.Money{Cents: 100000}, Category: "Infra", Status: core.StatusActive}},
		Revenue:         &revenue,
		FilterStartDate: &start,
	}

	client := NewClient(srv.URL, 2*time.Second)
	if err := client.PushAll(context.Background(), payload); err != nil {
		t.Fatalf("PushAll: %v", err)
	}
	if len(received.Expenses) != 1 || received.Revenue == nil || received.Revenue.Cents != 500000 {
		t.Errorf("server received %+v", received)
	}
	if received.RevenueDate != nil {
		t.Error("omitted field was serialized")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

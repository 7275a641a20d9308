package goplus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, ChainID: 1})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCheckAddress_Clean(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/0xclean", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chain_id") != "1" {
			t.Errorf("got chain_id %q", r.URL.Query().Get("chain_id"))
		}
		json.NewEncoder(w).Encode(Response{Code: 1, Result: AddressSecurity{
			DataSource: "SlowMist",
			Cybercrime: "0",
			Mixer:      "0",
		}})
	})

	c := newTestClient(t, mux)
	verdict, err := c.CheckAddress(context.Background(), "0xclean")
	if err != nil {
		t.Fatal(err)
	}
	if verdict.InRisk {
		t.Error("expected clean verdict")
	}
	if verdict.Detail != "" {
		t.Errorf("expected empty detail, got %q", verdict.Detail)
	}
}

func TestCheckAddress_Flagged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/0xbad", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Response{Code: 1, Result: AddressSecurity{
			MoneyLaundering: "1",
			Sanctioned:      "1",
		}})
	})

	c := newTestClient(t, mux)
	verdict, err := c.CheckAddress(context.Background(), "0xbad")
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.InRisk {
		t.Fatal("expected risky verdict")
	}
	if verdict.Score.String() != "100" {
		t.Errorf("expected score 100, got %s", verdict.Score)
	}
	lines := strings.Split(verdict.Detail, "\n")
	if len(lines) != 2 || lines[0] != "money_laundering" || lines[1] != "sanctioned" {
		t.Errorf("got detail %q", verdict.Detail)
	}
}

func TestCheckAddress_ServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/0xerr", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Response{Code: 4029, Message: "rate limited"})
	})

	c := newTestClient(t, mux)
	if _, err := c.CheckAddress(context.Background(), "0xerr"); err == nil {
		t.Fatal("expected error for non-success code")
	}
}

func TestCheckAddress_HTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/0xdown", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	if _, err := c.CheckAddress(context.Background(), "0xdown"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestIndicators_Order(t *testing.T) {
	sec := AddressSecurity{Cybercrime: "1", HoneypotRelatedAddress: "1"}
	inds := sec.Indicators()
	if len(inds) != 17 {
		t.Fatalf("expected 17 indicators, got %d", len(inds))
	}
	if inds[0].Name != "cybercrime" || !inds[0].Flagged {
		t.Errorf("unexpected first indicator: %+v", inds[0])
	}
	if inds[16].Name != "honeypot_related_address" || !inds[16].Flagged {
		t.Errorf("unexpected last indicator: %+v", inds[16])
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without base URL")
	}
}

package bnb

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// segmentResponse fabricates a minimal valid segment for the requested
// period, with one observation on the period's first day.
func segmentResponse(r *http.Request) string {
	q := r.URL.Query()
	from := fmt.Sprintf("%s.%s.%s", q.Get("periodStartDays"), q.Get("periodStartMonths"), q.Get("periodStartYear"))
	to := fmt.Sprintf("%s.%s.%s", q.Get("periodEndDays"), q.Get("periodEndMonths"), q.Get("periodEndYear"))
	return "Курсове на българския лев за периода " + from + " г. - " + to + " г.\n" +
		"Дата,Наименование,Код,Количество,Стойност (лв.)\n" +
		from + ",Щатски долар," + q.Get("valutes") + ",1,1.79832\n"
}

func testClient(url string) *Client {
	return &Client{
		BaseURL: url,
		HTTP:    &http.Client{Timeout: time.Second},
		sleep:   func(time.Duration) {},
	}
}

func TestFetchYear(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		requests = append(requests, q.Get("periodStartMonths")+"."+q.Get("periodStartYear"))
		fmt.Fprint(w, segmentResponse(r))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).FetchYear("USD", 2024)
	if err != nil {
		t.Fatal(err)
	}

	// December of the prior year first, then each month of the year.
	if len(requests) != 13 {
		t.Fatalf("requests = %d, want 13", len(requests))
	}
	if requests[0] != "12.2023" {
		t.Errorf("first request = %q, want the December run-in", requests[0])
	}
	if requests[1] != "01.2024" || requests[12] != "12.2024" {
		t.Errorf("month requests = %q .. %q", requests[1], requests[12])
	}
	if len(obs) != 13 {
		t.Errorf("observations = %d, want one per segment", len(obs))
	}
}

func TestFetchYearServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchYear("USD", 2024); err == nil {
		t.Fatal("expected an error on a non-200 response")
	}
}

func TestFetchYearRejectsMislabelledSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "Some unrelated page\n")
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchYear("USD", 2024); err == nil {
		t.Fatal("expected an error for a response that is not a rate segment")
	}
}

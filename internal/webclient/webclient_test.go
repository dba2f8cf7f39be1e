package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

func testLogger() interfaces.Logger {
	return interfaces.NewTestLogger(testing.Verbose())
}

func TestNetHTTPClientGetReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client, err := webclient.NewNetHTTPClient(webclient.Config{}, testLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	resp, err := webclient.Get(context.Background(), client, ts.URL+"/test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.Headers.Get("X-Custom") != "hello" {
		t.Errorf("X-Custom = %q", resp.Headers.Get("X-Custom"))
	}
	if resp.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestNetHTTPClientInjectsUserAgentFromPool(t *testing.T) {
	t.Parallel()
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	cfg := webclient.Config{UserAgents: []string{"VeilScan-UA-1", "VeilScan-UA-2"}}
	client, err := webclient.NewNetHTTPClient(cfg, testLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	if _, err := webclient.Get(context.Background(), client, ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(gotUA, "VeilScan-UA-") {
		t.Errorf("User-Agent = %q, want one from the pool", gotUA)
	}
}

func TestNetHTTPClientKeepsCallerHeaders(t *testing.T) {
	t.Parallel()
	var gotKey, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("hibp-api-key")
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	client, err := webclient.NewNetHTTPClient(webclient.Config{}, testLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	headers := http.Header{}
	headers.Set("hibp-api-key", "secret")
	headers.Set("User-Agent", "custom-agent")
	_, err = client.Do(context.Background(), &webclient.Request{
		URL:     ts.URL,
		Headers: headers,
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("hibp-api-key = %q", gotKey)
	}
	if gotUA != "custom-agent" {
		t.Errorf("User-Agent = %q, caller value must win", gotUA)
	}
}

func TestNetHTTPClientNilRequest(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewNetHTTPClient(webclient.Config{}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Do(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
}

func TestNetHTTPClientNilLogger(t *testing.T) {
	t.Parallel()
	if _, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestNewDefaultsToNetHTTP(t *testing.T) {
	t.Parallel()
	client, err := webclient.New(webclient.Config{}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	if _, ok := client.(*webclient.NetHTTPClient); !ok {
		t.Errorf("default backend is %T, want *NetHTTPClient", client)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := webclient.New(webclient.Config{Backend: "carrier-pigeon"}, testLogger())
	if err == nil {
		t.Fatal("expected error for unregistered backend")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("err = %v", err)
	}
}

func TestListBackends(t *testing.T) {
	t.Parallel()
	names := webclient.ListBackends()
	for _, want := range []string{"nethttp", "chromedp"} {
		if !slices.Contains(names, want) {
			t.Errorf("ListBackends() = %v, missing %q", names, want)
		}
	}
}

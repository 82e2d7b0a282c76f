package sms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// redirect sends every request the SDK makes to srv.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func clientFor(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return &http.Client{Transport: redirect{target: target}, Timeout: 5 * time.Second}
}

func TestSendPostsMessageWithBasicAuth(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTo, gotFrom, gotBody = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	client := New(config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+27110000000",
	}, clientFor(t, srv), testLogger())

	if err := client.Send(context.Background(), "+27821234567", "Rent overdue"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotUser != "AC123" || gotPass != "token" {
		t.Fatalf("unexpected basic auth %s:%s", gotUser, gotPass)
	}
	if gotTo != "+27821234567" || gotFrom != "+27110000000" || gotBody != "Rent overdue" {
		t.Fatalf("unexpected form To=%s From=%s Body=%s", gotTo, gotFrom, gotBody)
	}
}

func TestSendSurfacesProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	client := New(config.SMSConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"}, clientFor(t, srv), nil)

	err := client.Send(context.Background(), "+27821234567", "hi")
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		t.Fatalf("expected TwilioRestError, got %v", err)
	}
	if restErr.Status != http.StatusBadRequest || restErr.Code != 21211 {
		t.Fatalf("unexpected rest error %+v", restErr)
	}
}

func TestSendReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	defer close(release)

	client := New(config.SMSConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"}, clientFor(t, srv), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := client.Send(ctx, "+27821234567", "hi"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSendWithoutCredentialsIsNoop(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := New(config.SMSConfig{FromNumber: "+27110000000"}, clientFor(t, srv), testLogger())
	if client.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if err := client.Send(context.Background(), "+27821234567", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no provider calls, got %d", calls)
	}
}

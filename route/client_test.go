package route

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// testServer fakes the geocoding and routing endpoints. Routing responses
// are gzip-compressed to exercise the decode path.
func testServer(t *testing.T, routeDuration, routeDistance float64, routeCode string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "nowhere" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"display_name":%q,"lat":"50.1","lon":"14.4"}]`, q+" (resolved)")
	})

	mux.HandleFunc("/route/v1/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Error("client did not offer gzip")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close() //nolint:errcheck
		fmt.Fprintf(gz, `{"code":%q,"routes":[{"duration":%f,"distance":%f}]}`,
			routeCode, routeDuration, routeDistance)
	})

	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		GeocodeURL: srv.URL + "/search",
		RouteURL:   srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestClientPlan(t *testing.T) {
	srv := testServer(t, 900, 1200, "Ok")
	defer srv.Close()

	sum, err := newTestClient(srv).Plan(context.Background(), Request{
		Start: "old town",
		End:   "harbor",
		Mode:  ModeWalking,
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if sum.StartLabel != "old town (resolved)" {
		t.Errorf("start label = %q", sum.StartLabel)
	}
	if sum.Duration.Seconds() != 900 {
		t.Errorf("duration = %v, want 900s", sum.Duration)
	}
	if sum.DurationText != "15 minutes" {
		t.Errorf("duration text = %q", sum.DurationText)
	}
	if sum.DistanceText != "1.2 kilometers" {
		t.Errorf("distance text = %q", sum.DistanceText)
	}
}

func TestClientPlanTooLong(t *testing.T) {
	srv := testServer(t, (4*3600)+1, 300000, "Ok")
	defer srv.Close()

	_, err := newTestClient(srv).Plan(context.Background(), Request{
		Start: "here", End: "far away", Mode: ModeDriving,
	})
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("err = %v, want ErrTooLong", err)
	}
}

func TestClientPlanNoRoute(t *testing.T) {
	srv := testServer(t, 0, 0, "NoRoute")
	defer srv.Close()

	_, err := newTestClient(srv).Plan(context.Background(), Request{
		Start: "island", End: "mainland", Mode: ModeWalking,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClientPlanGeocodeMiss(t *testing.T) {
	srv := testServer(t, 900, 1200, "Ok")
	defer srv.Close()

	_, err := newTestClient(srv).Plan(context.Background(), Request{
		Start: "nowhere", End: "harbor", Mode: ModeWalking,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClientPlanBadMode(t *testing.T) {
	srv := testServer(t, 900, 1200, "Ok")
	defer srv.Close()

	_, err := newTestClient(srv).Plan(context.Background(), Request{
		Start: "a", End: "b", Mode: Mode("teleport"),
	})
	if err == nil {
		t.Error("expected an error for an unsupported mode")
	}
}

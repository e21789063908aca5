package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// buildTree creates a tree with n leaves under one product and returns
// their keys in traversal order.
func buildTree(t *testing.T, n int) (*catalog.Tree, []catalog.LookupKey) {
	t.Helper()

	tree := catalog.NewTree()
	for i := range n {
		path := []string{"1", "120", "933", "57", fmt.Sprintf("%03d", i), "1"}
		if err := tree.SetNode(path, "English (US)"); err != nil {
			t.Fatalf("SetNode failed: %v", err)
		}
	}
	return tree, tree.Keys()
}

// recordingSleep records requested pauses without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

// countingTransport tracks concurrent round trips.
type countingTransport struct {
	next    http.RoundTripper
	hold    time.Duration
	current atomic.Int64
	peak    atomic.Int64
	total   atomic.Int64
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.current.Add(1)
	defer c.current.Add(-1)
	c.total.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(c.hold)
	return c.next.RoundTrip(req)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestEngineResolve tests end-to-end batches against a fake endpoint.
func TestEngineResolve(t *testing.T) {
	t.Parallel()

	t.Run("every leaf is resolved and no leaf stays unresolved", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch q.Get("dtid") {
			case "000":
				fmt.Fprint(w, "No certified downloads were found")
			case "001":
				w.WriteHeader(http.StatusForbidden)
			default:
				fmt.Fprintf(w, "//us.download.nvidia.com/Windows/%s.exe", q.Get("dtid"))
			}
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 5)
		sleeper := &recordingSleep{}
		e := New(
			WithResolverURL(srv.URL),
			WithSleep(sleeper.sleep),
			WithLogger(quietLogger()),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		want := map[catalog.OutcomeKind]int{catalog.NotFound: 1, catalog.AccessDenied: 1, catalog.Resolved: 3}
		if diff := cmp.Diff(want, tree.Tally()); diff != "" {
			t.Errorf("tally mismatch (-want +got):\n%s", diff)
		}
		leaf, err := tree.Leaf(keys[4])
		if err != nil {
			t.Fatal(err)
		}
		if leaf.Outcome.URL != "https://us.download.nvidia.com/Windows/004.exe" {
			t.Errorf("unexpected url %q", leaf.Outcome.URL)
		}
	})

	t.Run("dispatches ceil(N/C) sequential chunks with a pause before each", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests.Add(1)
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 45)
		sleeper := &recordingSleep{}
		var hookCalls []int
		var requestsAtHook []int64
		e := New(
			WithResolverURL(srv.URL),
			WithChunkSize(20),
			WithDelayWindow(time.Second, 7*time.Second),
			WithSleep(sleeper.sleep),
			WithRandom(func(n int64) int64 { return n - 1 }),
			WithLogger(quietLogger()),
			WithChunkHook(func(_ context.Context, done, total int) error {
				if total != 3 {
					t.Errorf("expected 3 chunks, got %d", total)
				}
				hookCalls = append(hookCalls, done)
				requestsAtHook = append(requestsAtHook, requests.Load())
				return nil
			}),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		if diff := cmp.Diff([]int{1, 2, 3}, hookCalls); diff != "" {
			t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int64{20, 40, 45}, requestsAtHook); diff != "" {
			t.Errorf("chunks overlapped (-want +got):\n%s", diff)
		}
		if len(sleeper.delays) != 3 {
			t.Fatalf("expected a pause before each of 3 chunks, got %d", len(sleeper.delays))
		}
		for _, d := range sleeper.delays {
			if d != 7*time.Second {
				t.Errorf("expected the upper bound with a max random draw, got %v", d)
			}
		}
		if requests.Load() != 45 {
			t.Errorf("expected every key exactly once, got %d requests", requests.Load())
		}
	})

	t.Run("in-flight requests never exceed the ceiling", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		rt := &countingTransport{next: srv.Client().Transport, hold: 20 * time.Millisecond}
		tree, keys := buildTree(t, 25)
		sleeper := &recordingSleep{}
		e := New(
			WithResolverURL(srv.URL),
			WithTransport(rt),
			WithChunkSize(10),
			WithMaxInFlight(3),
			WithSleep(sleeper.sleep),
			WithLogger(quietLogger()),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if peak := rt.peak.Load(); peak > 3 {
			t.Errorf("peak in-flight %d exceeds ceiling 3", peak)
		}
		if total := rt.total.Load(); total != 25 {
			t.Errorf("expected 25 requests, got %d", total)
		}
		if n := tree.Tally()[catalog.Resolved]; n != 25 {
			t.Errorf("expected 25 resolved leaves, got %d", n)
		}
	})

	t.Run("a timeout fails only its own key", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("dtid") == "001" {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
				return
			}
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 3)
		sleeper := &recordingSleep{}
		e := New(
			WithResolverURL(srv.URL),
			WithTimeout(100*time.Millisecond),
			WithSleep(sleeper.sleep),
			WithLogger(quietLogger()),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		want := map[catalog.OutcomeKind]int{catalog.Resolved: 2, catalog.TransientError: 1}
		if diff := cmp.Diff(want, tree.Tally()); diff != "" {
			t.Errorf("tally mismatch (-want +got):\n%s", diff)
		}
		leaf, err := tree.Leaf(keys[1])
		if err != nil {
			t.Fatal(err)
		}
		if leaf.Outcome.Kind != catalog.TransientError {
			t.Errorf("expected transient error for the slow key, got %s", leaf.Outcome)
		}
	})

	t.Run("unknown key fails before any request", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests.Add(1)
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 2)
		bogus := catalog.LookupKey{ProductType: "9", ProductSeries: "9", Product: "9", OS: "9", DownloadType: "9", Language: "9"}
		e := New(WithResolverURL(srv.URL), WithSleep((&recordingSleep{}).sleep), WithLogger(quietLogger()))

		err := e.Resolve(t.Context(), tree, append(keys, bogus))
		if !errors.Is(err, catalog.ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath, got %v", err)
		}
		if requests.Load() != 0 {
			t.Errorf("expected no requests, got %d", requests.Load())
		}
		if tree.Tally()[catalog.Unresolved] != 2 {
			t.Error("expected the tree to be untouched")
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		t.Parallel()

		sleeper := &recordingSleep{}
		e := New(WithSleep(sleeper.sleep), WithLogger(quietLogger()))
		if err := e.Resolve(t.Context(), catalog.NewTree(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sleeper.delays) != 0 {
			t.Error("expected no pause for an empty batch")
		}
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		t.Parallel()

		tree, keys := buildTree(t, 3)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		e := New(WithSleep(sleepContext), WithDelayWindow(time.Hour, time.Hour), WithLogger(quietLogger()))
		if err := e.Resolve(ctx, tree, keys); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("hook error stops the batch", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 4)
		errDisk := errors.New("disk full")
		e := New(
			WithResolverURL(srv.URL),
			WithChunkSize(2),
			WithSleep((&recordingSleep{}).sleep),
			WithLogger(quietLogger()),
			WithChunkHook(func(context.Context, int, int) error { return errDisk }),
		)
		if err := e.Resolve(t.Context(), tree, keys); !errors.Is(err, errDisk) {
			t.Fatalf("expected hook error, got %v", err)
		}
		if n := tree.Tally()[catalog.Unresolved]; n != 2 {
			t.Errorf("expected the second chunk to stay unresolved, got %d", n)
		}
	})

	t.Run("metrics follow the batch", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "Access Denied")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 3)
		m := metrics.New()
		e := New(
			WithResolverURL(srv.URL),
			WithChunkSize(2),
			WithMetrics(m),
			WithSleep((&recordingSleep{}).sleep),
			WithLogger(quietLogger()),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatal(err)
		}
		if got := testutil.ToFloat64(m.Requests.WithLabelValues("access_denied")); got != 3 {
			t.Errorf("expected 3 denied requests, got %v", got)
		}
		if got := testutil.ToFloat64(m.Chunks); got != 2 {
			t.Errorf("expected 2 chunks, got %v", got)
		}
		if got := testutil.ToFloat64(m.InFlight); got != 0 {
			t.Errorf("expected in-flight gauge back at 0, got %v", got)
		}
	})

	t.Run("rate limit still resolves every key", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "/Windows/1.exe")
		}))
		defer srv.Close()

		tree, keys := buildTree(t, 4)
		e := New(
			WithResolverURL(srv.URL),
			WithRateLimit(100),
			WithSleep((&recordingSleep{}).sleep),
			WithLogger(quietLogger()),
		)
		if err := e.Resolve(t.Context(), tree, keys); err != nil {
			t.Fatal(err)
		}
		if n := tree.Tally()[catalog.Resolved]; n != 4 {
			t.Errorf("expected 4 resolved, got %d", n)
		}
	})
}

// TestRequestURL tests the parameter order.
func TestRequestURL(t *testing.T) {
	t.Parallel()

	e := New()
	key := catalog.LookupKey{ProductType: "1", ProductSeries: "127", Product: "1041", OS: "135", DownloadType: "18", Language: "9"}
	want := "https://www.nvidia.com/Download/processDriver.aspx?dtcid=1&psid=127&pfid=1041&osid=135&dtid=18&lid=9"
	if got := e.RequestURL(key); got != want {
		t.Errorf("RequestURL() = %q, want %q", got, want)
	}

	odd := key
	odd.Language = "a b&c"
	if got := e.RequestURL(odd); !strings.HasSuffix(got, "&lid=a+b%26c") {
		t.Errorf("expected escaped lid, got %q", got)
	}
}

// TestChunk tests key partitioning.
func TestChunk(t *testing.T) {
	t.Parallel()

	_, keys := buildTree(t, 41)
	tests := []struct {
		size  int
		count int
		last  int
	}{
		{20, 3, 1},
		{41, 1, 41},
		{50, 1, 41},
		{1, 41, 1},
		{0, 41, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("size %d", tt.size), func(t *testing.T) {
			t.Parallel()

			chunks := Chunk(keys, tt.size)
			if len(chunks) != tt.count {
				t.Fatalf("expected %d chunks, got %d", tt.count, len(chunks))
			}
			if got := len(chunks[len(chunks)-1]); got != tt.last {
				t.Errorf("expected last chunk of %d, got %d", tt.last, got)
			}
			var flat []catalog.LookupKey
			for _, c := range chunks {
				flat = append(flat, c...)
			}
			if diff := cmp.Diff(keys, flat); diff != "" {
				t.Errorf("chunks lost order (-want +got):\n%s", diff)
			}
		})
	}

	if got := Chunk(nil, 20); len(got) != 0 {
		t.Errorf("expected no chunks for no keys, got %d", len(got))
	}
}

// TestDelay tests the pause window.
func TestDelay(t *testing.T) {
	t.Parallel()

	low := New(WithDelayWindow(time.Second, 7*time.Second), WithRandom(func(int64) int64 { return 0 }))
	if d := low.delay(); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	fixed := New(WithDelayWindow(2*time.Second, 2*time.Second))
	if d := fixed.delay(); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}
	for range 100 {
		if d := New().delay(); d < time.Second || d > 7*time.Second {
			t.Fatalf("delay %v outside [1s, 7s]", d)
		}
	}
}

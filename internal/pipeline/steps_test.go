package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/resolver"
)

// memStore is an in-memory store.Store.
type memStore struct {
	mu    sync.Mutex
	tree  *catalog.Tree
	saves int
}

func (m *memStore) Load(context.Context) (*catalog.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return catalog.NewTree(), nil
	}
	return m.tree.Clone(), nil
}

func (m *memStore) Save(_ context.Context, tree *catalog.Tree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree = tree.Clone()
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) saved() (*catalog.Tree, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree, m.saves
}

// fakeDiscoverer returns a fixed tree.
type fakeDiscoverer struct {
	tree  *catalog.Tree
	keys  []catalog.LookupKey
	err   error
	calls int
}

func (f *fakeDiscoverer) Walk(context.Context) (*catalog.Tree, []catalog.LookupKey, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.tree.Clone(), f.keys, nil
}

// vendorServer answers resolver requests. Keys listed in bodies get that
// body, every other key resolves to a download URL.
type vendorServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	hits   map[string]int
	onHit  func()
}

func newVendorServer(t *testing.T, bodies map[string]string) *vendorServer {
	t.Helper()

	v := &vendorServer{bodies: bodies, hits: make(map[string]int)}
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		key := strings.Join([]string{q.Get("dtcid"), q.Get("psid"), q.Get("pfid"), q.Get("osid"), q.Get("dtid"), q.Get("lid")}, "/")

		v.mu.Lock()
		v.hits[key]++
		body, ok := v.bodies[key]
		onHit := v.onHit
		v.mu.Unlock()

		if onHit != nil {
			onHit()
		}
		if !ok {
			body = "//us.download.nvidia.com/Windows/" + key + ".exe"
		}
		_, _ = io.WriteString(w, body) //nolint:errcheck // test server
	}))
	t.Cleanup(v.Close)
	return v
}

func (v *vendorServer) requests() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]int, len(v.hits))
	for k, n := range v.hits {
		out[k] = n
	}
	return out
}

func (v *vendorServer) options() []resolver.Option {
	return []resolver.Option{
		resolver.WithResolverURL(v.URL),
		resolver.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	}
}

// buildTree creates a labelled tree holding the given leaves.
func buildTree(t *testing.T, leaves map[string]catalog.Outcome) (*catalog.Tree, []catalog.LookupKey) {
	t.Helper()

	tree := catalog.NewTree()
	for k, outcome := range leaves {
		path := splitKey(k)
		for i := range path {
			if err := tree.SetNode(path[:i+1], "label "+path[i]); err != nil {
				t.Fatal(err)
			}
		}
		key, err := catalog.KeyFromPath(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.SetLeafOutcome(key, outcome); err != nil {
			t.Fatal(err)
		}
	}
	return tree, tree.Keys()
}

func splitKey(s string) []string {
	return strings.Split(s, "/")
}

func diffTrees(want, got *catalog.Tree) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func kinds(tree *catalog.Tree) map[string]catalog.OutcomeKind {
	out := make(map[string]catalog.OutcomeKind)
	for key, outcome := range tree.Leaves() {
		out[key.String()] = outcome.Kind
	}
	return out
}

// TestLoadStep tests loading the persisted tree.
func TestLoadStep(t *testing.T) {
	t.Parallel()

	t.Run("replaces the run tree", func(t *testing.T) {
		t.Parallel()

		tree, _ := buildTree(t, map[string]catalog.Outcome{"1/2/3/4/5/6": {}})
		st := &memStore{tree: tree}
		run := NewRun()
		run.Discovered = true
		if err := NewLoadStep(st, WithLoadLogger(quietLogger())).Do(t.Context(), run); err != nil {
			t.Fatal(err)
		}
		if run.Tree.Len() != 1 || run.Discovered {
			t.Errorf("unexpected run state: %d leaves, discovered %v", run.Tree.Len(), run.Discovered)
		}
	})

	t.Run("required catalog missing", func(t *testing.T) {
		t.Parallel()

		step := NewLoadStep(&memStore{}, WithRequireCatalog(), WithLoadLogger(quietLogger()))
		if err := step.Do(t.Context(), NewRun()); !errors.Is(err, ErrEmptyCatalog) {
			t.Errorf("expected ErrEmptyCatalog, got %v", err)
		}
	})
}

// TestDiscoverStep tests the discovery step.
func TestDiscoverStep(t *testing.T) {
	t.Parallel()

	t.Run("skips when a tree is loaded", func(t *testing.T) {
		t.Parallel()

		d := &fakeDiscoverer{}
		run := NewRun()
		run.Tree, _ = buildTree(t, map[string]catalog.Outcome{"1/2/3/4/5/6": {}})
		step := NewDiscoverStep(d, WithDiscoverOnlyIfEmpty(), WithDiscoverLogger(quietLogger()))
		if err := step.Do(t.Context(), run); err != nil {
			t.Fatal(err)
		}
		if d.calls != 0 {
			t.Error("expected no walk")
		}
	})

	t.Run("empty walk is refused", func(t *testing.T) {
		t.Parallel()

		run := NewRun()
		step := NewDiscoverStep(&fakeDiscoverer{tree: catalog.NewTree()}, WithDiscoverLogger(quietLogger()))
		if err := step.Do(t.Context(), run); !errors.Is(err, ErrNothingDiscovered) {
			t.Errorf("expected ErrNothingDiscovered, got %v", err)
		}
		if run.Discovered {
			t.Error("expected the run not to be marked as discovered")
		}
	})

	t.Run("session failure is returned", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("no browser")
		step := NewDiscoverStep(&fakeDiscoverer{err: boom}, WithDiscoverLogger(quietLogger()))
		if err := step.Do(t.Context(), NewRun()); !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}

// TestCollectRecoverableStep tests which leaves a reconciliation retries.
func TestCollectRecoverableStep(t *testing.T) {
	t.Parallel()

	tree, _ := buildTree(t, map[string]catalog.Outcome{
		"1/1/1/1/1/1": catalog.ResolvedURL("https://x/1.exe"),
		"1/1/1/1/1/2": catalog.NotFoundOutcome(""),
		"1/1/1/1/1/3": catalog.AccessDeniedOutcome(""),
		"1/1/1/1/1/4": catalog.TransientOutcome(""),
		"1/1/1/1/1/5": {},
	})

	tests := []struct {
		name              string
		includeUnresolved bool
		want              []string
	}{
		{"failed only", false, []string{"1/1/1/1/1/3", "1/1/1/1/1/4"}},
		{"with unresolved", true, []string{"1/1/1/1/1/3", "1/1/1/1/1/4", "1/1/1/1/1/5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			run := NewRun()
			run.Tree = tree
			if err := NewCollectRecoverableStep(tt.includeUnresolved, quietLogger()).Do(t.Context(), run); err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, k := range run.Keys {
				got = append(got, k.String())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("collected mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestResolveStep tests resolution, checkpoints and partial saves.
func TestResolveStep(t *testing.T) {
	t.Parallel()

	t.Run("empty queue sends nothing", func(t *testing.T) {
		t.Parallel()

		srv := newVendorServer(t, nil)
		step := NewResolveStep(srv.options(), WithResolveLogger(quietLogger()))
		if err := step.Do(t.Context(), NewRun()); err != nil {
			t.Fatal(err)
		}
		if len(srv.requests()) != 0 {
			t.Error("expected no requests")
		}
	})

	t.Run("checkpoints between chunks", func(t *testing.T) {
		t.Parallel()

		srv := newVendorServer(t, nil)
		st := &memStore{}
		tree, keys := buildTree(t, map[string]catalog.Outcome{
			"1/1/1/1/1/1": {}, "1/1/1/1/1/2": {}, "1/1/1/1/1/3": {},
		})
		run := NewRun()
		run.Tree, run.Keys = tree, keys

		opts := append(srv.options(), resolver.WithChunkSize(1), resolver.WithLogger(quietLogger()))
		step := NewResolveStep(opts, WithCheckpoint(st, 1), WithResolveLogger(quietLogger()))
		if err := step.Do(t.Context(), run); err != nil {
			t.Fatal(err)
		}
		// chunks 1 and 2; the final chunk is left to the save step
		if _, saves := st.saved(); saves != 2 {
			t.Errorf("expected 2 checkpoints, got %d", saves)
		}
		for key, kind := range kinds(run.Tree) {
			if kind != catalog.Resolved {
				t.Errorf("%s: expected resolved, got %s", key, kind)
			}
		}
	})

	t.Run("cancellation saves the partial tree", func(t *testing.T) {
		t.Parallel()

		srv := newVendorServer(t, nil)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		srv.onHit = cancel

		st := &memStore{}
		tree, keys := buildTree(t, map[string]catalog.Outcome{
			"1/1/1/1/1/1": {}, "1/1/1/1/1/2": {}, "1/1/1/1/1/3": {},
		})
		run := NewRun()
		run.Tree, run.Keys = tree, keys

		opts := append(srv.options(), resolver.WithChunkSize(1), resolver.WithLogger(quietLogger()))
		step := NewResolveStep(opts, WithCheckpoint(st, 0), WithResolveLogger(quietLogger()))
		if err := step.Do(ctx, run); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		saved, saves := st.saved()
		if saves != 1 {
			t.Fatalf("expected one partial save, got %d", saves)
		}
		if got := saved.Tally()[catalog.Unresolved]; got != 2 {
			t.Errorf("expected 2 untouched leaves in the partial save, got %d", got)
		}
	})

	t.Run("invalid key fails without saving", func(t *testing.T) {
		t.Parallel()

		srv := newVendorServer(t, nil)
		st := &memStore{}
		missing, err := catalog.KeyFromPath([]string{"9", "9", "9", "9", "9", "9"})
		if err != nil {
			t.Fatal(err)
		}
		run := NewRun()
		run.Keys = []catalog.LookupKey{missing}

		step := NewResolveStep(srv.options(), WithCheckpoint(st, 1), WithResolveLogger(quietLogger()))
		if err := step.Do(t.Context(), run); !errors.Is(err, catalog.ErrInvalidPath) {
			t.Errorf("expected ErrInvalidPath, got %v", err)
		}
		if _, saves := st.saved(); saves != 0 {
			t.Errorf("expected no save, got %d", saves)
		}
	})
}

// TestSaveStep tests conditional saving.
func TestSaveStep(t *testing.T) {
	t.Parallel()

	st := &memStore{}
	step := NewSaveStep(st, WithSaveOnlyAfterDiscovery(), WithSaveLogger(quietLogger()))
	run := NewRun()
	if err := step.Do(t.Context(), run); err != nil {
		t.Fatal(err)
	}
	if _, saves := st.saved(); saves != 0 {
		t.Errorf("expected no save for a loaded tree, got %d", saves)
	}
	run.Discovered = true
	if err := step.Do(t.Context(), run); err != nil {
		t.Fatal(err)
	}
	if _, saves := st.saved(); saves != 1 {
		t.Errorf("expected one save, got %d", saves)
	}
}

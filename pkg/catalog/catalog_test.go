package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"fable/pkg/fault"
)

const rolesBody = `{"roles":[
	{"role_id":"hero","display_name":"Hero","required":true,"constraints":{"min_age":6,"max_age":10}},
	{"role_id":"sidekick","display_name":"Sidekick"}
]}`

func TestFetchRoles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("templateId") {
		case "three-wishes":
			w.Write([]byte(rolesBody))
		case "broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "bad-range":
			w.Write([]byte(`{"roles":[{"role_id":"hero","constraints":{"min_age":10,"max_age":6}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	t.Run("known template", func(t *testing.T) {
		roles, err := client.FetchRoles(ctx, "three-wishes")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(roles) != 2 || roles[0].RoleID != "hero" || roles[1].RoleID != "sidekick" {
			t.Errorf("roles = %+v", roles)
		}
		if !roles[0].Required || roles[1].Required {
			t.Error("required flags lost in decode")
		}
		if c := roles[0].Constraints; c.MinAge == nil || *c.MinAge != 6 || c.MaxAge == nil || *c.MaxAge != 10 {
			t.Errorf("constraints = %+v", roles[0].Constraints)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := client.FetchRoles(ctx, "nope")
		if kind := fault.KindOf(err); kind != fault.NotFound {
			t.Errorf("kind = %s, want not_found", kind)
		}
	})

	t.Run("server failure", func(t *testing.T) {
		_, err := client.FetchRoles(ctx, "broken")
		if kind := fault.KindOf(err); kind != fault.Unavailable {
			t.Errorf("kind = %s, want unavailable", kind)
		}
	})

	t.Run("inverted age range", func(t *testing.T) {
		_, err := client.FetchRoles(ctx, "bad-range")
		if kind := fault.KindOf(err); kind != fault.Unavailable {
			t.Errorf("kind = %s, want unavailable", kind)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := client.FetchRoles(ctx, "")
		if kind := fault.KindOf(err); kind != fault.InvalidInput {
			t.Errorf("kind = %s, want invalid_input", kind)
		}
	})
}

func TestFetchRolesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore

	_, err := NewClient(srv.URL).FetchRoles(context.Background(), "three-wishes")
	if kind := fault.KindOf(err); kind != fault.Unavailable {
		t.Errorf("kind = %s, want unavailable", kind)
	}
}

func TestResolverCoalescesConcurrentFetches(t *testing.T) {
	var hits atomic.Int64
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		w.Write([]byte(rolesBody))
	}))
	defer srv.Close()

	resolver := NewResolver(NewClient(srv.URL))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := resolver.Roles("three-wishes"); err != nil {
				t.Errorf("roles: %v", err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if n := hits.Load(); n < 1 || n > 2 {
		t.Errorf("catalog hit %d times for 8 concurrent lookups", n)
	}

	// Cached afterwards.
	if _, err := resolver.Roles("three-wishes"); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if n := hits.Load(); n > 2 {
		t.Errorf("cached lookup reached the catalog (%d hits)", n)
	}

	// Refresh always does.
	before := hits.Load()
	if _, err := resolver.Refresh("three-wishes"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if hits.Load() != before+1 {
		t.Error("refresh should bypass the cache")
	}
}

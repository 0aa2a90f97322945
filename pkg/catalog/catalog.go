// Package catalog fetches a template's cast of roles from the external
// template catalog. The catalog is a black box reached over HTTP; this
// client classifies its failures but never retries them — retry is a manual
// user action.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fable/pkg/fault"
	"fable/pkg/flight"
	"fable/pkg/schema"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type rolesResponse struct {
	Roles []schema.RoleDefinition `json:"roles"`
}

// FetchRoles returns the ordered role list for a template. Unknown templates
// fail with fault.NotFound; transport and server failures with
// fault.Unavailable.
func (c *Client) FetchRoles(ctx context.Context, templateID string) ([]schema.RoleDefinition, error) {
	if templateID == "" {
		return nil, fault.Errorf(fault.InvalidInput, "template id is required")
	}

	u := fmt.Sprintf("%s/roles?templateId=%s", c.baseURL, url.QueryEscape(templateID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fault.New(fault.Unavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if kind := fault.KindOf(err); kind == fault.Timeout || kind == fault.Canceled {
			return nil, fault.New(kind, err)
		}
		return nil, fault.New(fault.Unavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fault.Errorf(fault.NotFound, "template %q not found", templateID)
	case resp.StatusCode != http.StatusOK:
		return nil, fault.Errorf(fault.Unavailable, "catalog returned %s", resp.Status)
	}

	var body rolesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fault.Errorf(fault.Unavailable, "decoding catalog response: %w", err)
	}

	for _, role := range body.Roles {
		rc := role.Constraints
		if rc.MinAge != nil && rc.MaxAge != nil && *rc.MinAge > *rc.MaxAge {
			return nil, fault.Errorf(fault.Unavailable, "catalog sent role %q with min_age > max_age", role.RoleID)
		}
	}

	return body.Roles, nil
}

// Resolver wraps the client with a short-lived single-flight cache so
// concurrent requests for the same template share one catalog call.
type Resolver struct {
	cache *flight.Cache[string, []schema.RoleDefinition]
}

func NewResolver(client *Client) *Resolver {
	cache := flight.NewCache(func(templateID string) ([]schema.RoleDefinition, error) {
		return client.FetchRoles(context.Background(), templateID)
	})
	cache.Expiry(time.Minute)
	return &Resolver{cache: cache}
}

// Roles resolves a template's roles, coalescing concurrent lookups.
func (r *Resolver) Roles(templateID string) ([]schema.RoleDefinition, error) {
	if templateID == "" {
		return nil, fault.Errorf(fault.InvalidInput, "template id is required")
	}
	return r.cache.Get(templateID)
}

// Refresh bypasses the cache for a manual "try again" action.
func (r *Resolver) Refresh(templateID string) ([]schema.RoleDefinition, error) {
	if templateID == "" {
		return nil, fault.Errorf(fault.InvalidInput, "template id is required")
	}
	return r.cache.Force(templateID)
}

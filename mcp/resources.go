package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const resourcesPath = "/api/v1/resources"

// ResourceMeta is the standardized metadata envelope attached to every
// resource the API returns.
type ResourceMeta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
}

// ResourceLinks holds navigation links for a resource.
type ResourceLinks struct {
	Self     string   `json:"self"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
	Related  []string `json:"related,omitempty"`
}

// Resource is a single resource with its envelope.
type Resource struct {
	Data  map[string]any `json:"data"`
	Meta  ResourceMeta   `json:"metadata"`
	Links ResourceLinks  `json:"links"`
}

// Pagination describes the position of a ResourcePage within the full
// result set.
type Pagination struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ResourcePage is one page of a resource listing.
type ResourcePage struct {
	Data       []map[string]any `json:"data"`
	Meta       []ResourceMeta   `json:"metadata"`
	Links      ResourceLinks    `json:"links"`
	Pagination Pagination       `json:"pagination"`
}

// Query filters and paginates a resource listing.
type Query struct {
	Page    int
	PerPage int
	Status  string
	Tag     string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", fmt.Sprint(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", fmt.Sprint(q.PerPage))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	return v
}

// ResourceService provides CRUD access to one resource type. It shares
// the owning client's transport, so retry and error semantics match
// Send exactly.
type ResourceService struct {
	client *Client
	typ    string
}

// Resources returns a service scoped to the given resource type, e.g.
// "media" or "presets".
func (c *Client) Resources(typ string) *ResourceService {
	return &ResourceService{client: c, typ: typ}
}

// List fetches one page of resources.
func (s *ResourceService) List(ctx context.Context, q Query) (*ResourcePage, error) {
	path := resourcesPath + "/" + url.PathEscape(s.typ)
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	resp, err := s.client.roundTrip(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var page ResourcePage
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches a single resource by id.
func (s *ResourceService) Get(ctx context.Context, id string) (*Resource, error) {
	resp, err := s.client.roundTrip(ctx, http.MethodGet, s.itemPath(id), nil)
	if err != nil {
		return nil, tagResource(err, id)
	}
	return decodeResource(resp)
}

// Create stores a new resource built from attrs.
func (s *ResourceService) Create(ctx context.Context, attrs map[string]any) (*Resource, error) {
	payload, err := json.Marshal(map[string]any{"data": attrs})
	if err != nil {
		return nil, &ValidationError{
			APIError: APIError{Message: fmt.Sprintf("resource attributes not serializable: %v", err)},
		}
	}
	resp, err := s.client.roundTrip(ctx, http.MethodPost, resourcesPath+"/"+url.PathEscape(s.typ), payload)
	if err != nil {
		return nil, err
	}
	return decodeResource(resp)
}

// Update applies attrs to an existing resource.
func (s *ResourceService) Update(ctx context.Context, id string, attrs map[string]any) (*Resource, error) {
	payload, err := json.Marshal(map[string]any{"data": attrs})
	if err != nil {
		return nil, &ValidationError{
			APIError: APIError{Message: fmt.Sprintf("resource attributes not serializable: %v", err)},
		}
	}
	resp, err := s.client.roundTrip(ctx, http.MethodPatch, s.itemPath(id), payload)
	if err != nil {
		return nil, tagResource(err, id)
	}
	return decodeResource(resp)
}

// Delete removes a resource by id.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	_, err := s.client.roundTrip(ctx, http.MethodDelete, s.itemPath(id), nil)
	return tagResource(err, id)
}

func (s *ResourceService) itemPath(id string) string {
	return resourcesPath + "/" + url.PathEscape(s.typ) + "/" + url.PathEscape(id)
}

// decodeResource converts the opaque response mapping into the typed
// resource envelope.
func decodeResource(resp *Response) (*Resource, error) {
	var res Resource
	if err := resp.Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// tagResource attaches the resource id to not-found errors so callers
// see which id was missing.
func tagResource(err error, id string) error {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		notFound.ResourceID = id
	}
	return err
}

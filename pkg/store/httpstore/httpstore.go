// Package httpstore is a DocumentStore over a paginated REST document API.
//
// Endpoints:
//
//	POST  {base}/collections/{collection}/query  {"filter", "start_cursor", "page_size"}
//	PATCH {base}/pages/{id}                      {"properties": {...}} or {"archived": true}
package httpstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/httpclient"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const defaultPageSize = 100

// Config configures the REST store
type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
}

// Store is a REST-backed DocumentStore
type Store struct {
	client   *httpclient.Client
	baseURL  string
	token    string
	pageSize int
	logger   ectologger.Logger
}

type queryRequest struct {
	Filter      map[string]any `json:"filter,omitempty"`
	StartCursor string         `json:"start_cursor,omitempty"`
	PageSize    int            `json:"page_size"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID          string          `json:"id"`
	CreatedTime json.RawMessage `json:"created_time"`
	Archived    bool            `json:"archived"`
	Properties  map[string]any  `json:"properties"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New creates a REST store
func New(cfg Config, logger ectologger.Logger) *Store {
	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	return NewWithClient(cfg, httpclient.NewClient(clientCfg, logger), logger)
}

// NewWithClient creates a REST store over an existing client
func NewWithClient(cfg Config, client *httpclient.Client, logger ectologger.Logger) *Store {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Store{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: pageSize,
		logger:   logger,
	}
}

// QueryAll follows cursors until the collection is exhausted
func (s *Store) QueryAll(ctx context.Context, collection string, filter *models.QueryFilter) ([]models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "httpstore.Store.QueryAll")
	defer span.End()

	req := queryRequest{PageSize: s.pageSize}
	if filter != nil && len(filter.Properties) > 0 {
		req.Filter = filter.Properties
	}

	endpoint := fmt.Sprintf("%s/collections/%s/query", s.baseURL, url.PathEscape(collection))
	docs := make([]models.Document, 0)
	seen := make(map[string]struct{})
	for {
		resp, err := s.client.DoJSON(ctx, http.MethodPost, endpoint, s.headers(), req)
		if err != nil {
			return nil, httperror.WrapError(http.StatusBadGateway, err)
		}
		if !resp.IsSuccess() {
			return nil, s.responseError(resp, "query "+collection)
		}

		var out queryResponse
		if err := resp.Decode(&out); err != nil {
			return nil, httperror.WrapError(http.StatusBadGateway, err)
		}
		for _, p := range out.Results {
			if p.Archived {
				continue
			}
			docs = append(docs, p.toDocument(collection))
		}

		if !out.HasMore || out.NextCursor == "" {
			break
		}
		if _, dup := seen[out.NextCursor]; dup {
			return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "store repeated cursor %q", out.NextCursor)
		}
		seen[out.NextCursor] = struct{}{}
		req.StartCursor = out.NextCursor
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"collection": collection,
		"documents":  len(docs),
	}).Debugf("Queried documents")
	return docs, nil
}

// UpdatePartial sends only the given properties
func (s *Store) UpdatePartial(ctx context.Context, id string, properties map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "httpstore.Store.UpdatePartial")
	defer span.End()

	return s.patch(ctx, id, map[string]any{"properties": properties}, "update "+id)
}

// Archive sets archived=true on the page
func (s *Store) Archive(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "httpstore.Store.Archive")
	defer span.End()

	return s.patch(ctx, id, map[string]any{"archived": true}, "archive "+id)
}

func (s *Store) patch(ctx context.Context, id string, body map[string]any, op string) error {
	endpoint := fmt.Sprintf("%s/pages/%s", s.baseURL, url.PathEscape(id))
	resp, err := s.client.DoJSON(ctx, http.MethodPatch, endpoint, s.headers(), body)
	if err != nil {
		return httperror.WrapError(http.StatusBadGateway, err)
	}
	if !resp.IsSuccess() {
		return s.responseError(resp, op)
	}
	return nil
}

func (s *Store) headers() map[string]string {
	if s.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// responseError keeps the store's status code so results report it
func (s *Store) responseError(resp *httpclient.Response, op string) error {
	msg := strings.TrimSpace(string(resp.Body))
	var body errorResponse
	if json.Unmarshal(resp.Body, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	if resp.RetryAfter != "" {
		msg = fmt.Sprintf("%s (retry after %s)", msg, resp.RetryAfter)
	}
	return httperror.NewHTTPErrorf(resp.StatusCode, "store %s failed: %s", op, msg)
}

func (p page) toDocument(collection string) models.Document {
	props := p.Properties
	if props == nil {
		props = map[string]any{}
	}
	createdAt, invalid := models.ParseTimestamp(p.CreatedTime)
	return models.Document{
		ID:               p.ID,
		Collection:       collection,
		CreatedAt:        createdAt,
		Properties:       props,
		InvalidCreatedAt: invalid,
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/dmitrijs2005/nestwatch/internal/netx"
)

const (
	dbPath      = "/api/db"
	regionsPath = "/api/regions"
	healthPath  = "/healthz"
)

// HTTPClient implements Client over the /api/db query surface.
type HTTPClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL. A zero timeout disables the
// per-request deadline.
func NewHTTPClient(baseURL, token string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	return &HTTPClient{base: u, token: token, http: &http.Client{Timeout: timeout}}, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, healthPath, nil, nil, "")
	return err
}

func (c *HTTPClient) Manifest(ctx context.Context, region string) ([]models.ManifestEntry, error) {
	var out []models.ManifestEntry
	if err := c.regionGet(ctx, "chg", region, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Sites(ctx context.Context, region string) ([]models.Site, error) {
	var out []models.Site
	if err := c.regionGet(ctx, "nk", region, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Inspections(ctx context.Context, region string) ([]models.Inspection, error) {
	var out []models.Inspection
	if err := c.regionGet(ctx, "ctrls", region, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Site(ctx context.Context, id string) (*models.Site, error) {
	q := url.Values{"what": {"site"}, "id": {id}}
	body, err := c.send(ctx, http.MethodGet, dbPath, q, nil, "")
	if err != nil {
		return nil, err
	}
	var s models.Site
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode site: %w", err)
	}
	return &s, nil
}

// UpsertSite sends the site with its visits as one unit.
func (c *HTTPClient) UpsertSite(ctx context.Context, region string, site models.Site) (*models.UpsertResult, error) {
	if region == "" {
		return nil, common.ErrMissingRegion
	}
	payload, err := json.Marshal(site)
	if err != nil {
		return nil, err
	}

	q := url.Values{"what": {"nk"}, common.RegionParam: {region}}
	body, err := c.send(ctx, http.MethodPost, dbPath, q, payload, "application/json")
	if err != nil {
		return nil, err
	}

	var res models.UpsertResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode upsert result: %w", err)
	}
	return &res, nil
}

func (c *HTTPClient) DownloadBlob(ctx context.Context, path string) ([]byte, error) {
	q := url.Values{"what": {"img"}, "imgPath": {path}}
	return c.send(ctx, http.MethodGet, dbPath, q, nil, "")
}

// UploadBlob returns the byte count acknowledged by the server.
func (c *HTTPClient) UploadBlob(ctx context.Context, path string, data []byte) (int, error) {
	q := url.Values{"what": {"img"}, "imgPath": {path}}
	body, err := c.send(ctx, http.MethodPost, dbPath, q, data, "application/octet-stream")
	if err != nil {
		return 0, err
	}
	var ack struct {
		OK int `json:"ok"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return 0, fmt.Errorf("decode upload ack: %w", err)
	}
	return ack.OK, nil
}

func (c *HTTPClient) RemoveDuplicates(ctx context.Context) (int, error) {
	body, err := c.send(ctx, http.MethodGet, dbPath, url.Values{"what": {"dpl"}}, nil, "")
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode dedup result: %w", err)
	}
	return out.Count, nil
}

func (c *HTTPClient) SyncRegions(ctx context.Context, regions []models.Region) ([]models.Region, error) {
	if regions == nil {
		regions = []models.Region{}
	}
	payload, err := json.Marshal(regions)
	if err != nil {
		return nil, err
	}
	body, err := c.send(ctx, http.MethodPost, regionsPath, nil, payload, "application/json")
	if err != nil {
		return nil, err
	}
	var out []models.Region
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) regionGet(ctx context.Context, what, region string, out any) error {
	if region == "" {
		return common.ErrMissingRegion
	}
	q := url.Values{"what": {what}, common.RegionParam: {region}}
	body, err := c.send(ctx, http.MethodGet, dbPath, q, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, q url.Values, body []byte, contentType string) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	h := http.Header{}
	if c.token != "" {
		h.Set(common.AuthHeaderName, common.BearerPrefix+c.token)
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}

	out, err := netx.Send(ctx, c.http, method, u.String(), h, body)
	return out, mapError(ctx, err)
}

// mapError converts transport and status failures into sentinel errors.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var se *netx.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case se.StatusCode == http.StatusBadRequest && se.Message == common.ErrMissingRegion.Error():
		return common.ErrMissingRegion
	case se.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, se.Message)
	case se.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case se.StatusCode == http.StatusForbidden:
		return common.ErrForbiddenRegion
	case se.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case se.StatusCode >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, se)
	default:
		return err
	}
}

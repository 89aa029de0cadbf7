package review

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/viewfinder/internal/db"
	"github.com/banshee-data/viewfinder/internal/httputil"
	"github.com/banshee-data/viewfinder/internal/raster"
)

// Client talks to a running review server.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a client for the server at baseURL using
// http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

func (c *Client) url(path string, q url.Values) string {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// NormalizeResult is an upright image returned by the server.
type NormalizeResult struct {
	Data              []byte
	ContentType       string
	SourceOrientation raster.Orientation
}

// Normalize uploads an encoded image and returns it upright, encoded with
// codec. override replaces the image's own orientation tag unless it is
// empty.
func (c *Client) Normalize(ctx context.Context, data []byte, override string, codec raster.Codec) (*NormalizeResult, error) {
	q := url.Values{}
	q.Set("fmt", codec.String())
	if override != "" {
		q.Set("orientation", override)
	}
	body, hdr, err := httputil.Send(ctx, c.HTTP, http.MethodPost, c.url("/api/normalize", q),
		"application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	res := &NormalizeResult{Data: body, ContentType: hdr.Get("Content-Type")}
	if o, err := raster.ParseOrientation(hdr.Get("X-Source-Orientation")); err == nil {
		res.SourceOrientation = o
	}
	return res, nil
}

// MapPOI asks the server to map a tap.
func (c *Client) MapPOI(ctx context.Context, req POIRequest) (POIResponse, error) {
	var resp POIResponse
	if err := httputil.DoJSON(ctx, c.HTTP, http.MethodPost, c.url("/api/poi", nil), req, &resp); err != nil {
		return POIResponse{}, fmt.Errorf("map poi: %w", err)
	}
	return resp, nil
}

// ListCaptures returns ledger entries, newest first. An empty kind lists
// both photos and videos.
func (c *Client) ListCaptures(ctx context.Context, kind db.Kind, limit int) ([]db.Capture, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", string(kind))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var out []db.Capture
	if err := httputil.DoJSON(ctx, c.HTTP, http.MethodGet, c.url("/api/captures", q), nil, &out); err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	return out, nil
}

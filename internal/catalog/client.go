package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"partsadmin/internal/models"
)

// Client talks to the shop REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories fetches GET /categories.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.getJSON(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Products fetches GET /products.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.getJSON(ctx, "/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product fetches GET /products/{id}.
func (c *Client) Product(ctx context.Context, id string) (models.Product, error) {
	var out models.Product
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &out); err != nil {
		return models.Product{}, err
	}
	return out, nil
}

// CreateProduct sends POST /products.
func (c *Client) CreateProduct(ctx context.Context, p *Payload) error {
	return c.send(ctx, http.MethodPost, "/products", p)
}

// UpdateProduct sends PUT /products/{id}.
func (c *Client) UpdateProduct(ctx context.Context, id string, p *Payload) error {
	return c.send(ctx, http.MethodPut, "/products/"+url.PathEscape(id), p)
}

func (c *Client) send(ctx context.Context, method, path string, p *Payload) error {
	body, contentType, err := p.Encode()
	if err != nil {
		return fmt.Errorf("catalog: %w: %v", ErrEncode, err)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := decodeData(raw, v); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Buffer) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = body
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("catalog: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do returns *APIError for any non-2xx answer.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// decodeData accepts both bare JSON and the {"data": ...} envelope.
func decodeData(raw []byte, v any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		raw = envelope.Data
	}
	return json.Unmarshal(raw, v)
}

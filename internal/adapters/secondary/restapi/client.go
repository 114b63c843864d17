package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 64 << 10
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ServiceToken is sent when the caller's context carries no bearer token.
	ServiceToken string
	HealthPath   string
}

// Client talks to the upstream complaint-management REST API. Every decoded
// payload is validated before it is returned.
type Client struct {
	baseURL      string
	serviceToken string
	healthPath   string
	httpClient   *http.Client
	validate     *validator.Validate
	logger       *slog.Logger
}

var _ ports.APIClient = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		serviceToken: cfg.ServiceToken,
		healthPath:   healthPath,
		httpClient:   &http.Client{Timeout: timeout},
		validate:     validator.New(),
		logger:       logger.With("component", "restapi"),
	}
}

// Ping checks that the upstream answers at all. Any status below 500 counts.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, c.healthPath, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{StatusCode: resp.StatusCode, Method: http.MethodGet, Path: c.healthPath}
	}
	return nil
}

// --- Statistiques ---

func (c *Client) GetStatistiques(ctx context.Context) (*domain.Statistiques, error) {
	return fetchOne[domain.Statistiques](ctx, c, http.MethodGet, "/statistiques", nil, nil)
}

// --- Plaintes ---

func (c *Client) GetPlaintesParStatut(ctx context.Context, bucket domain.Bucket, page, limit int) (*domain.PlaintePage, error) {
	if !bucket.IsValid() {
		return nil, apperrors.ErrInvalidBucket
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	result, err := fetchOne[domain.PlaintePage](ctx, c, http.MethodGet, "/plaintes/statut/"+bucket.UpstreamStatus(), query, nil)
	if err != nil {
		return nil, err
	}
	if result.Page == 0 {
		result.Page = page
	}
	if result.Limit == 0 {
		result.Limit = limit
	}
	return result, nil
}

func (c *Client) ListPlaintes(ctx context.Context, skip, limit int) ([]domain.Plainte, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	return fetchList[domain.Plainte](ctx, c, http.MethodGet, "/plaintes", query, nil)
}

func (c *Client) GetPlainte(ctx context.Context, id int64) (*domain.Plainte, error) {
	return fetchOne[domain.Plainte](ctx, c, http.MethodGet, plaintePath(id), nil, nil)
}

func (c *Client) CreatePlainte(ctx context.Context, input domain.PlainteInput) (*domain.Plainte, error) {
	return fetchOne[domain.Plainte](ctx, c, http.MethodPost, "/plaintes", nil, input)
}

func (c *Client) UpdatePlainte(ctx context.Context, id int64, input domain.PlainteInput) (*domain.Plainte, error) {
	return fetchOne[domain.Plainte](ctx, c, http.MethodPut, plaintePath(id), nil, input)
}

// --- Suggestions & processing ---

func (c *Client) ListSuggestions(ctx context.Context) ([]domain.SuggestionIA, error) {
	return fetchList[domain.SuggestionIA](ctx, c, http.MethodGet, "/suggestions-ia", nil, nil)
}

func (c *Client) ListSuggestionsPlainte(ctx context.Context, plainteID int64) ([]domain.SuggestionIA, error) {
	return fetchList[domain.SuggestionIA](ctx, c, http.MethodGet, plaintePath(plainteID)+"/suggestions", nil, nil)
}

func (c *Client) ProcessFiles(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/process-files", nil, nil, nil)
}

func (c *Client) ProcessService(ctx context.Context, serviceName string) error {
	body := map[string]string{"service_name": serviceName}
	return c.do(ctx, http.MethodPost, "/process-service", nil, body, nil)
}

// --- Tendances ---

func (c *Client) GetTendances(ctx context.Context, periode domain.Periode) (*domain.Tendances, error) {
	if !periode.IsValid() {
		return nil, apperrors.ErrInvalidPeriode
	}
	query := url.Values{}
	query.Set("periode", string(periode))

	var out domain.Tendances
	if err := c.do(ctx, http.MethodGet, "/tendances", query, nil, &out); err != nil {
		return nil, err
	}
	// Older upstream versions omit the period they answered for.
	if out.Periode == "" {
		out.Periode = periode
	}
	if err := c.validate.StructCtx(ctx, &out); err != nil {
		return nil, &DecodeError{Method: http.MethodGet, Path: "/tendances", Err: err}
	}
	return &out, nil
}

// --- Services ---

func (c *Client) ListServices(ctx context.Context) ([]domain.Service, error) {
	return fetchList[domain.Service](ctx, c, http.MethodGet, "/services", nil, nil)
}

func (c *Client) CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	return fetchOne[domain.Service](ctx, c, http.MethodPost, "/services", nil, svc)
}

func (c *Client) UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	return fetchOne[domain.Service](ctx, c, http.MethodPut, "/services/"+strconv.FormatInt(svc.ID, 10), nil, svc)
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/services/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// --- Utilisateurs ---

func (c *Client) ListUtilisateurs(ctx context.Context) ([]domain.Utilisateur, error) {
	return fetchList[domain.Utilisateur](ctx, c, http.MethodGet, "/utilisateurs", nil, nil)
}

func (c *Client) CreateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error) {
	return fetchOne[domain.Utilisateur](ctx, c, http.MethodPost, "/utilisateurs", nil, user)
}

func (c *Client) UpdateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error) {
	return fetchOne[domain.Utilisateur](ctx, c, http.MethodPut, "/utilisateurs/"+strconv.FormatInt(user.ID, 10), nil, user)
}

func (c *Client) DeleteUtilisateur(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/utilisateurs/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// --- Audit ---

func (c *Client) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) (*domain.AuditPage, error) {
	filter = filter.Normalize()

	query := url.Values{}
	if filter.Action != "" {
		query.Set("action", filter.Action)
	}
	if filter.ObjetType != "" {
		query.Set("objet_type", filter.ObjetType)
	}
	query.Set("limit", strconv.Itoa(filter.Limit))
	query.Set("skip", strconv.Itoa(filter.Skip))

	page, err := fetchOne[domain.AuditPage](ctx, c, http.MethodGet, "/audit-logs", query, nil)
	if err != nil {
		return nil, err
	}
	page.Filter = filter
	return page, nil
}

// --- transport ---

func plaintePath(id int64) string {
	return "/plaintes/" + strconv.FormatInt(id, 10)
}

func fetchOne[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	if err := c.validate.StructCtx(ctx, &out); err != nil {
		return nil, &DecodeError{Method: method, Path: path, Err: err}
	}
	return &out, nil
}

func fetchList[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) ([]T, error) {
	var out []T
	if err := c.do(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := c.validate.StructCtx(ctx, &out[i]); err != nil {
			return nil, &DecodeError{Method: method, Path: path, Err: fmt.Errorf("element %d: %w", i, err)}
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// do sends the request and decodes a 2xx body into out. out may be nil when
// the response body is not needed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream request failed",
			"method", method,
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %s %s: %w", apperrors.ErrUpstream, method, path, err)
	}

	c.logger.DebugContext(ctx, "upstream request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (c *Client) token(ctx context.Context) string {
	if token, ok := auth.BearerTokenFromContext(ctx); ok {
		return token
	}
	return c.serviceToken
}

// statusError reads the upstream error body. FastAPI style {"detail": "..."}
// and {"message": "..."} are both understood; anything else is ignored.
func (c *Client) statusError(resp *http.Response, method, path string) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode, Method: method, Path: path}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return statusErr
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return statusErr
	}

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil {
		statusErr.Detail = strings.TrimSpace(detail)
	}
	if statusErr.Detail == "" {
		statusErr.Detail = strings.TrimSpace(payload.Message)
	}
	return statusErr
}

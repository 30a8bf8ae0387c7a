package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hasan-mia/techstore-ui/internal/domain"
	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
	"github.com/hasan-mia/techstore-ui/pkg/httpclient"
)

const serviceName = "product-api"

// doer is satisfied by *httpclient.CircuitBreakerClient.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPProvider reads products from the backend product API.
type HTTPProvider struct {
	client  doer
	baseURL string
}

// NewHTTPProvider creates a provider for the API rooted at baseURL.
func NewHTTPProvider(client doer, baseURL string) *HTTPProvider {
	return &HTTPProvider{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// envelope is the backend response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// apiProduct is the backend product shape. Prices arrive in major units,
// sometimes as strings.
type apiProduct struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       amount    `json:"price"`
	Image       string    `json:"image"`
	CategoryID  string    `json:"categoryId"`
	Stock       int       `json:"stock"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GetProduct fetches GET {baseURL}/products/{id}.
func (p *HTTPProvider) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/products/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Unavailable("product catalog unreachable", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, apperrors.NotFound("product", id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if !env.Success {
		return nil, apperrors.Unavailable(fmt.Sprintf("%s: %s", serviceName, env.Message), nil)
	}

	var ap apiProduct
	if err := json.Unmarshal(env.Data, &ap); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	if ap.ID == "" {
		return nil, apperrors.NotFound("product", id)
	}

	return &domain.Product{
		ID:          ap.ID,
		Name:        ap.Name,
		Description: ap.Description,
		Price:       int64(ap.Price),
		Image:       ap.Image,
		CategoryID:  ap.CategoryID,
		Stock:       ap.Stock,
		Rating:      ap.Rating,
		Reviews:     ap.Reviews,
		CreatedAt:   ap.CreatedAt,
	}, nil
}

// amount is a price in minor units decoded from a JSON number or numeric
// string expressed in major units.
type amount int64

func (a *amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	if f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("invalid price %q", s)
	}
	// float64(math.MaxInt64) is 2^63, the first value int64 cannot hold.
	cents := math.Round(f * 100)
	if cents >= float64(math.MaxInt64) {
		return fmt.Errorf("price %q out of range", s)
	}
	*a = amount(cents)
	return nil
}

// Package seed loads generated products into a running catalog through its
// public API.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ConnorDW-SA/marketplace/pkg/httpclient"
	"github.com/ConnorDW-SA/marketplace/pkg/slug"
)

// Config controls a seeding run.
type Config struct {
	CatalogURL string `env:"CATALOG_URL" envDefault:"http://localhost:3002"`
	ImageHost  string `env:"SEED_IMAGE_HOST" envDefault:"https://cdn.example.com"`
	Count      int    `env:"SEED_COUNT" envDefault:"50"`
	MaxReviews int    `env:"SEED_MAX_REVIEWS" envDefault:"5"`
	RandomSeed int64  `env:"SEED_RANDOM" envDefault:"1"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL is required")
	}
	if c.Count < 1 {
		return fmt.Errorf("SEED_COUNT must be positive")
	}
	if c.MaxReviews < 0 {
		return fmt.Errorf("SEED_MAX_REVIEWS must not be negative")
	}
	return nil
}

// Review is the create-review payload.
type Review struct {
	Comment string  `json:"comment"`
	Rate    float64 `json:"rate"`
}

// Product is the create-product payload.
type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	ImageURL    string   `json:"imageUrl"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Reviews     []Review `json:"reviews"`
}

var (
	brands     = []string{"Lumière", "Nordlys", "Halo & Co", "Brightwell", "Atelier Kandil"}
	categories = []string{"desk", "floor", "wall", "ceiling", "outdoor"}
	adjectives = []string{"Arc", "Globe", "Pendant", "Tripod", "Studio", "Reading", "Marble"}
	comments   = []string{
		"Exactly as pictured.",
		"Warm light, sturdy base.",
		"Took a while to arrive but worth it.",
		"Cable is too short.",
		"Great value for the price.",
	}
)

// Generate builds n products deterministically from rng.
func Generate(rng *rand.Rand, n, maxReviews int, imageHost string) []Product {
	title := cases.Title(language.English)
	products := make([]Product, 0, n)
	for i := 0; i < n; i++ {
		brand := brands[rng.Intn(len(brands))]
		name := fmt.Sprintf("%s %s Lamp %d", brand, adjectives[rng.Intn(len(adjectives))], i+1)

		p := Product{
			Name:        name,
			Description: fmt.Sprintf("%s lamp by %s.", title.String(categories[i%len(categories)]), brand),
			Brand:       brand,
			ImageURL:    fmt.Sprintf("%s/products/%s.jpg", strings.TrimRight(imageHost, "/"), slug.Generate(name)),
			Price:       float64(rng.Intn(50000)) / 100,
			Category:    categories[i%len(categories)],
			Reviews:     []Review{},
		}

		if maxReviews > 0 {
			for j := rng.Intn(maxReviews + 1); j > 0; j-- {
				p.Reviews = append(p.Reviews, Review{
					Comment: comments[rng.Intn(len(comments))],
					Rate:    float64(1 + rng.Intn(5)),
				})
			}
		}
		products = append(products, p)
	}
	return products
}

// Doer sends HTTP requests; *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Seeder posts products to the catalog.
type Seeder struct {
	client  Doer
	baseURL string
	logger  *slog.Logger
}

// NewSeeder creates a Seeder targeting the catalog at baseURL.
func NewSeeder(client Doer, baseURL string, logger *slog.Logger) *Seeder {
	return &Seeder{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Run creates every product and returns the ids assigned by the catalog.
// It stops at the first failure.
func (s *Seeder) Run(ctx context.Context, products []Product) ([]string, error) {
	ids := make([]string, 0, len(products))
	for i := range products {
		id, err := s.create(ctx, &products[i])
		if err != nil {
			return ids, fmt.Errorf("seed product %q: %w", products[i].Name, err)
		}
		ids = append(ids, id)

		s.logger.Debug("product seeded",
			slog.String("product_id", id),
			slog.Int("reviews", len(products[i].Reviews)),
		)
	}

	s.logger.Info("seeding complete", slog.Int("products", len(ids)))
	return ids, nil
}

func (s *Seeder) create(ctx context.Context, p *Product) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal product: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/products", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return created.Data.ID, nil
}

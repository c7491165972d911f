package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/saaskit/backend/internal/config"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/observability"
	log "github.com/sirupsen/logrus"
)

const (
	planCacheKey = "plans:catalog"

	CatalogSourceStatic   = "static"
	CatalogSourceProvider = "provider"
	CatalogSourceCache    = "cache"
)

// DefaultPlans is the catalog shown when no billing provider is configured.
var DefaultPlans = []models.Plan{
	{
		ID:          "free",
		Name:        "Free",
		Description: "Perfect for trying out our service",
		Price:       models.PlanText{PrimaryText: "Free", SecondaryText: "100 credits included"},
		Items: []models.PlanText{
			{PrimaryText: "100 credits per month", SecondaryText: "For AI chat and brand monitoring"},
			{PrimaryText: "Community support", SecondaryText: "Get help from our community"},
			{PrimaryText: "Basic features", SecondaryText: "Essential tools to get started"},
		},
	},
	{
		ID:            "pro",
		Name:          "Pro",
		Description:   "Coming soon - Contact us for enterprise pricing",
		RecommendText: "Most Popular",
		Price:         models.PlanText{PrimaryText: "Contact Us", SecondaryText: "Custom pricing"},
		Items: []models.PlanText{
			{PrimaryText: "Unlimited credits", SecondaryText: "No limits on usage"},
			{PrimaryText: "Priority support", SecondaryText: "Get help from our team"},
			{PrimaryText: "Advanced features", SecondaryText: "Access to all features"},
		},
	},
}

// PlansResponse is the body of GET /plans.
type PlansResponse struct {
	Plans  []models.Plan `json:"plans"`
	CTAURL string        `json:"ctaUrl" example:"/sign-up"`
	Source string        `json:"source" example:"static"`
}

type PlanService struct {
	config *config.BillingConfig
	redis  *redis.Client
	client *http.Client

	metrics *observability.Metrics
}

func NewPlanService(cfg *config.BillingConfig, redisClient *redis.Client, metrics *observability.Metrics) *PlanService {
	if cfg == nil {
		cfg = &config.BillingConfig{CTAURL: "/sign-up"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PlanService{
		config:  cfg,
		redis:   redisClient,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// Catalog returns the plans to display and where they came from. Provider failures are
// logged and answered with the static catalog.
func (s *PlanService) Catalog(ctx context.Context) ([]models.Plan, string) {
	if !s.config.ProviderEnabled() {
		return staticPlans(), CatalogSourceStatic
	}

	if plans, ok := s.cached(ctx); ok {
		return plans, CatalogSourceCache
	}

	plans, err := s.fetch(ctx)
	if err != nil {
		log.Printf("[PLANS] Billing provider unavailable, using static catalog: %v", err)
		return staticPlans(), CatalogSourceStatic
	}

	s.store(ctx, plans)
	return plans, CatalogSourceProvider
}

// GetPlans godoc
// @Summary List pricing plans
// @Description Returns the plan catalog with the call-to-action target for signed-out visitors
// @Tags plans
// @Produce json
// @Success 200 {object} PlansResponse
// @Router /plans [get]
func (s *PlanService) GetPlans(w http.ResponseWriter, r *http.Request) {
	plans, source := s.Catalog(r.Context())
	s.metrics.RecordCatalog(source)

	ctaURL := s.config.CTAURL
	if ctaURL == "" {
		ctaURL = "/sign-up"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	json.NewEncoder(w).Encode(PlansResponse{Plans: plans, CTAURL: ctaURL, Source: source})
}

func (s *PlanService) cached(ctx context.Context) ([]models.Plan, bool) {
	if s.redis == nil {
		return nil, false
	}

	data, err := s.redis.Get(ctx, planCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[PLANS] Cache read failed: %v", err)
		return nil, false
	}

	var plans []models.Plan
	if err := json.Unmarshal(data, &plans); err != nil || len(plans) == 0 {
		return nil, false
	}
	return plans, true
}

func (s *PlanService) store(ctx context.Context, plans []models.Plan) {
	if s.redis == nil || s.config.CacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(plans)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, planCacheKey, data, s.config.CacheTTL).Err(); err != nil {
		log.Printf("[PLANS] Cache write failed: %v", err)
	}
}

type providerCatalog struct {
	Plans []models.Plan `json:"plans"`
}

func (s *PlanService) fetch(ctx context.Context) ([]models.Plan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.CatalogURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog returned status %d", models.ErrExternalService, resp.StatusCode)
	}

	var catalog providerCatalog
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %w", models.ErrExternalService, err)
	}
	if len(catalog.Plans) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return catalog.Plans, nil
}

func staticPlans() []models.Plan {
	plans := make([]models.Plan, len(DefaultPlans))
	copy(plans, DefaultPlans)
	return plans
}

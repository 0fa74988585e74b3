package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// CatalogClient consumes the external car catalog read-only. Car data is
// owned by the catalog service; lookups here exist for price metadata and
// go through a Redis read-through cache.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	cache      CarCache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// CarCache is the cache surface the catalog client needs.
type CarCache interface {
	GetCachedCar(ctx context.Context, carID int64) (*models.Car, error)
	CacheCar(ctx context.Context, car *models.Car, ttl time.Duration) error
}

// NewCatalogClient creates a new catalog client. cache may be nil, in which
// case every lookup goes to the catalog service.
func NewCatalogClient(baseURL string, cache CarCache, cacheTTL time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     util.GetLogger(),
	}
}

// GetCar fetches a car record, preferring the cache.
func (cc *CatalogClient) GetCar(ctx context.Context, carID int64) (*models.Car, error) {
	if cc.cache != nil {
		car, err := cc.cache.GetCachedCar(ctx, carID)
		if err != nil {
			cc.logger.Warn("Car cache lookup failed",
				zap.Int64("car_id", carID),
				zap.Error(err))
		} else if car != nil {
			util.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
			return car, nil
		}
	}
	util.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/cars/%d", cc.baseURL, carID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := cc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", store.ErrCarNotFound, carID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var car models.Car
	if err := json.NewDecoder(resp.Body).Decode(&car); err != nil {
		return nil, fmt.Errorf("failed to decode car: %w", err)
	}

	if cc.cache != nil {
		if err := cc.cache.CacheCar(ctx, &car, cc.cacheTTL); err != nil {
			cc.logger.Warn("Failed to cache car",
				zap.Int64("car_id", carID),
				zap.Error(err))
		}
	}

	return &car, nil
}

// QuoteResponse is the price quote for a prospective reservation
type QuoteResponse struct {
	CarID      int64 `json:"car_id"`
	DayCount   int64 `json:"day_count"`
	TotalPrice int64 `json:"total_price"`
}

// Quote calculates the price for an inclusive date range:
// day_count * price_per_day.
func (cc *CatalogClient) Quote(ctx context.Context, carID int64, startStr, endStr string) (*QuoteResponse, error) {
	start, end, err := ParseRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	car, err := cc.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}

	dayCount := int64(end.Sub(start)/(24*time.Hour)) + 1

	util.QuotesCalculatedTotal.Inc()
	return &QuoteResponse{
		CarID:      carID,
		DayCount:   dayCount,
		TotalPrice: dayCount * car.PricePerDay,
	}, nil
}

var _ CarCache = (*redisclient.Client)(nil)

// workers/catalog_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recycle-rewards-system/models"
	"recycle-rewards-system/utils"

	"go.uber.org/zap"
)

// ListingSeeder is what the worker needs from the catalog.
type ListingSeeder interface {
	SeedListings(ctx context.Context, listings []models.PrizeListing) (int, error)
}

// CatalogFeedClient reads prize listings published by the partner catalog.
type CatalogFeedClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewCatalogFeedClient(baseURL, token string) *CatalogFeedClient {
	return &CatalogFeedClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: utils.HTTPClient,
	}
}

type feedListing struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	PointsRequired int64  `json:"points_required"`
	Stock          int64  `json:"stock"`
}

// GetChangedListings fetches listings published or edited since the given time.
func (c *CatalogFeedClient) GetChangedListings(ctx context.Context, since time.Time) ([]models.PrizeListing, error) {
	u, err := url.Parse(c.BaseURL + "/prizes")
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("X-Service-Token", c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalog feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Prizes []feedListing `json:"prizes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode catalog feed response: %w", err)
	}

	listings := make([]models.PrizeListing, 0, len(response.Prizes))
	for _, p := range response.Prizes {
		listings = append(listings, models.PrizeListing{
			Name:           p.Name,
			Description:    p.Description,
			ImageURL:       p.ImageURL,
			PointsRequired: p.PointsRequired,
			Stock:          p.Stock,
		})
	}
	return listings, nil
}

// CatalogSyncWorker polls the feed and seeds new listings.
type CatalogSyncWorker struct {
	Client   *CatalogFeedClient
	Seeder   ListingSeeder
	Log      *zap.SugaredLogger
	Interval time.Duration

	lastSync time.Time
}

func NewCatalogSyncWorker(client *CatalogFeedClient, seeder ListingSeeder, log *zap.SugaredLogger, interval time.Duration) *CatalogSyncWorker {
	return &CatalogSyncWorker{
		Client:   client,
		Seeder:   seeder,
		Log:      log,
		Interval: interval,
		lastSync: time.Now().UTC().Add(-24 * time.Hour),
	}
}

// SyncOnce runs one poll. The sync window only advances after the listings
// were stored, so a failed tick retries the same window.
func (w *CatalogSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	started := time.Now().UTC()

	listings, err := w.Client.GetChangedListings(ctx, w.lastSync)
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		w.lastSync = started
		return 0, nil
	}

	created, err := w.Seeder.SeedListings(ctx, listings)
	if err != nil {
		return created, err
	}
	w.lastSync = started
	return created, nil
}

// Run polls until ctx is cancelled.
func (w *CatalogSyncWorker) Run(ctx context.Context) {
	w.Log.Infof("Starting catalog feed polling every %s...", w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("Catalog feed polling stopped.")
			return
		case <-ticker.C:
			created, err := w.SyncOnce(ctx)
			if err != nil {
				w.Log.Errorf("❌ Error syncing catalog feed: %v", err)
				continue
			}
			if created > 0 {
				w.Log.Infof("✅ Seeded %d new prize listing(s) from feed.", created)
			} else {
				w.Log.Debug("➡️ No new prize listings.")
			}
		}
	}
}

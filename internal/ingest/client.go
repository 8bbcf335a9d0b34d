package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-insight/internal/analytics"
	"price-insight/internal/storage"
)

// maxPages caps one FetchSince walk so a misbehaving hasMore flag cannot
// loop forever.
const maxPages = 1000

// Options configure the platform API client.
type Options struct {
	BaseURL   string
	PageSize  int
	Timeout   time.Duration
	UserAgent string
}

// Client fetches observation pages from the platform REST API.
type Client struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewClient constructs a platform API client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

type observationPayload struct {
	PointID      string          `json:"pointId"`
	PointName    string          `json:"pointName"`
	PointType    string          `json:"pointType"`
	RegionCode   string          `json:"regionCode"`
	RegionName   string          `json:"regionName"`
	Date         string          `json:"date"`
	Price        decimal.Decimal `json:"price"`
	DayChange    decimal.Decimal `json:"dayChange"`
	QualityTag   string          `json:"qualityTag"`
	ReviewStatus string          `json:"reviewStatus"`
	SourceType   string          `json:"sourceType"`
	ReportedAt   time.Time       `json:"reportedAt"`
}

type observationPage struct {
	Items   []observationPayload `json:"items"`
	HasMore bool                 `json:"hasMore"`
}

// FetchSince walks the observation pages starting at since.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]storage.ObservationRecord, error) {
	if c.opts.BaseURL == "" {
		return nil, fmt.Errorf("ingest base_url is required")
	}

	records := make([]storage.ObservationRecord, 0)
	for page := 1; page <= maxPages; page++ {
		batch, hasMore, err := c.fetchPage(ctx, since, page)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		if !hasMore {
			c.logger.Debug().Int("pages", page).Int("records", len(records)).Msg("fetch complete")
			return records, nil
		}
	}
	return nil, fmt.Errorf("observation feed exceeded %d pages", maxPages)
}

func (c *Client) fetchPage(ctx context.Context, since time.Time, page int) ([]storage.ObservationRecord, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/observations?%s", c.opts.BaseURL, url.Values{
		"since":     {since.UTC().Format("2006-01-02")},
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(c.opts.PageSize)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create observations request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch observations page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("observations 响应码异常: %d", resp.StatusCode)
	}

	var body observationPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode observations page %d: %w", page, err)
	}

	records := make([]storage.ObservationRecord, 0, len(body.Items))
	for _, item := range body.Items {
		record, err := item.toRecord()
		if err != nil {
			c.logger.Warn().Err(err).Str("point_id", item.PointID).Msg("skipping malformed observation")
			continue
		}
		records = append(records, record)
	}
	return records, body.HasMore, nil
}

// toRecord converts one payload into its storage row. The platform is loose
// about tagged-dimension spellings ("通过", "APPROVED", "港口"); they collapse
// to the canonical variants here, before anything is persisted, so SQL scope
// predicates and the engine agree on the same row.
func (p observationPayload) toRecord() (storage.ObservationRecord, error) {
	if p.PointID == "" {
		return storage.ObservationRecord{}, fmt.Errorf("missing pointId")
	}
	date, err := time.ParseInLocation("2006-01-02", p.Date, time.UTC)
	if err != nil {
		return storage.ObservationRecord{}, fmt.Errorf("parse date %q: %w", p.Date, err)
	}
	return storage.ObservationRecord{
		PointID:      p.PointID,
		PointName:    p.PointName,
		PointType:    string(analytics.ParsePointType(p.PointType)),
		RegionCode:   p.RegionCode,
		RegionLabel:  p.RegionName,
		Date:         date,
		Price:        p.Price,
		DayChange:    p.DayChange,
		QualityTag:   string(analytics.ParseQualityTag(p.QualityTag)),
		ReviewStatus: string(analytics.ParseReviewStatus(p.ReviewStatus)),
		SourceType:   string(analytics.ParseSourceType(p.SourceType)),
		ReportedAt:   p.ReportedAt,
	}, nil
}

var _ Source = (*Client)(nil)

// Package nvd implements the vulnerability source backed by the NVD CVE
// API 2.0 keyword search endpoint.
package nvd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/model"
	"github.com/fleetscan/fleetscan-backend/util"
)

const (
	defaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	publishedFmt   = "2006-01-02T15:04:05.000"
)

// Client queries the NVD CVE API 2.0. Zero-value options give a production
// client; overrides exist for tests and mirrored deployments.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, typically an
// httptest server or an internal mirror.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIKey sets the NVD API key sent in the apiKey header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client. The API key defaults to the NVD_API_KEY
// environment variable; an empty key is valid and just gets the public
// rate limits.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     util.GetEnvDefault("NVD_API_KEY", ""),
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one keyword query and maps the response into vulnerability
// records. HTTP 429 maps to engine.ErrRateLimited so the caller can
// distinguish throttling from hard failures.
func (c *Client) Search(ctx context.Context, keyword string, pageSize int) ([]model.VulnerabilityRecord, error) {
	params := url.Values{}
	params.Set("keywordSearch", keyword)
	params.Set("resultsPerPage", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to build NVD request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("NVD request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, xerrors.Errorf("NVD keyword %q: %w", keyword, engine.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, xerrors.Errorf("NVD returned status %d for keyword %q", resp.StatusCode, keyword)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("failed to read NVD response: %w", err)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, xerrors.Errorf("failed to decode NVD response: %w", err)
	}

	return parseRecords(payload, keyword), nil
}

// parseRecords flattens the API payload into records. Every CVE the
// keyword search returned is kept; the CPE criteria check below only
// decides which version ranges apply to this keyword, since NVD matches
// descriptions too and boundaries for unrelated products would poison
// version matching.
func parseRecords(payload apiResponse, keyword string) []model.VulnerabilityRecord {
	records := make([]model.VulnerabilityRecord, 0, len(payload.Vulnerabilities))
	for _, item := range payload.Vulnerabilities {
		cve := item.CVE
		if cve.ID == "" {
			continue
		}

		records = append(records, model.VulnerabilityRecord{
			ID:             cve.ID,
			Description:    englishDescription(cve.Descriptions),
			Severity:       baseScore(cve.Metrics),
			AffectedRanges: affectedRanges(cve.Configurations, keyword),
			Published:      parsePublished(cve.Published),
		})
	}
	return records
}

// englishDescription prefers the en-language entry, falling back to the
// first one present.
func englishDescription(descs []description) string {
	for _, d := range descs {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(descs) > 0 {
		return descs[0].Value
	}
	return ""
}

// baseScore picks the highest-precedence CVSS score: v3.1, then v3.0,
// then v2.
func baseScore(m metrics) float64 {
	for _, metricSet := range [][]cvssMetric{m.CVSSMetricV31, m.CVSSMetricV30, m.CVSSMetricV2} {
		if len(metricSet) > 0 {
			return metricSet[0].CVSSData.BaseScore
		}
	}
	return 0
}

// affectedRanges collects the version boundaries from every vulnerable
// cpeMatch whose criteria mentions the keyword. A CVE whose criteria
// never mentions it yields no ranges, not an excluded record.
func affectedRanges(configs []configuration, keyword string) []model.AffectedRange {
	var ranges []model.AffectedRange
	for _, cfg := range configs {
		for _, n := range cfg.Nodes {
			for _, match := range n.CPEMatch {
				if !match.Vulnerable || !criteriaMentions(match.Criteria, keyword) {
					continue
				}
				r := model.AffectedRange{
					StartIncluding: match.VersionStartIncluding,
					StartExcluding: match.VersionStartExcluding,
					EndIncluding:   match.VersionEndIncluding,
					EndExcluding:   match.VersionEndExcluding,
				}
				if !r.IsEmpty() {
					ranges = append(ranges, r)
				}
			}
		}
	}
	return ranges
}

// criteriaMentions checks a CPE criteria string for the keyword. CPE
// product fields use underscores where display names use spaces, so both
// variants are tried, dashes too.
func criteriaMentions(criteria, keyword string) bool {
	criteria = strings.ToLower(criteria)
	keyword = strings.ToLower(keyword)
	for _, variant := range []string{
		keyword,
		strings.ReplaceAll(keyword, " ", "_"),
		strings.ReplaceAll(keyword, " ", "-"),
	} {
		if strings.Contains(criteria, variant) {
			return true
		}
	}
	return false
}

func parsePublished(value string) time.Time {
	if t, err := time.Parse(publishedFmt, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

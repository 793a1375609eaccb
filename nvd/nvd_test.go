package nvd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscan/fleetscan-backend/engine"
)

const sampleResponse = `{
	"resultsPerPage": 2,
	"startIndex": 0,
	"totalResults": 2,
	"vulnerabilities": [
		{
			"cve": {
				"id": "CVE-2023-1234",
				"published": "2023-03-01T10:00:00.000",
				"descriptions": [
					{"lang": "es", "value": "descripcion en espanol"},
					{"lang": "en", "value": "Buffer overflow in nginx"}
				],
				"metrics": {
					"cvssMetricV31": [{"cvssData": {"baseScore": 9.8}}],
					"cvssMetricV2": [{"cvssData": {"baseScore": 7.5}}]
				},
				"configurations": [
					{
						"nodes": [
							{
								"cpeMatch": [
									{
										"vulnerable": true,
										"criteria": "cpe:2.3:a:f5:nginx:*:*:*:*:*:*:*:*",
										"versionStartIncluding": "1.0.0",
										"versionEndExcluding": "1.25.0"
									}
								]
							}
						]
					}
				]
			}
		},
		{
			"cve": {
				"id": "CVE-2023-5678",
				"published": "2023-04-01T10:00:00.000",
				"descriptions": [
					{"lang": "en", "value": "Unrelated product mentioning nginx in prose only"}
				],
				"metrics": {
					"cvssMetricV2": [{"cvssData": {"baseScore": 4.3}}]
				},
				"configurations": [
					{
						"nodes": [
							{
								"cpeMatch": [
									{
										"vulnerable": true,
										"criteria": "cpe:2.3:a:vendor:otherproduct:*:*:*:*:*:*:*:*"
									}
								]
							}
						]
					}
				]
			}
		}
	]
}`

func Test_SearchParsesRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nginx", r.URL.Query().Get("keywordSearch"))
		assert.Equal(t, "50", r.URL.Query().Get("resultsPerPage"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	records, err := client.Search(context.Background(), "nginx", 50)
	require.NoError(t, err)

	require.Len(t, records, 2)
	rec := records[0]
	assert.Equal(t, "CVE-2023-1234", rec.ID)
	assert.Equal(t, "Buffer overflow in nginx", rec.Description)
	assert.Equal(t, 9.8, rec.Severity, "v3.1 score wins over v2")
	require.Len(t, rec.AffectedRanges, 1)
	assert.Equal(t, "1.0.0", rec.AffectedRanges[0].StartIncluding)
	assert.Equal(t, "1.25.0", rec.AffectedRanges[0].EndExcluding)
	assert.Equal(t, 2023, rec.Published.Year())

	// A CVE whose CPE criteria never mentions the keyword is still a
	// match; only its version boundaries are withheld.
	assert.Equal(t, "CVE-2023-5678", records[1].ID)
	assert.Equal(t, 4.3, records[1].Severity)
	assert.Empty(t, records[1].AffectedRanges)
}

func Test_SearchKeepsRecordsWithForeignCriteria(t *testing.T) {
	const payload = `{
		"vulnerabilities": [
			{
				"cve": {
					"id": "CVE-2024-0001",
					"published": "2024-01-15T10:00:00.000",
					"descriptions": [{"lang": "en", "value": "Plugin flaw, nginx named in prose"}],
					"metrics": {"cvssMetricV31": [{"cvssData": {"baseScore": 6.1}}]},
					"configurations": [
						{
							"nodes": [
								{
									"cpeMatch": [
										{
											"vulnerable": true,
											"criteria": "cpe:2.3:a:vendor:someplugin:*:*:*:*:*:*:*:*",
											"versionEndExcluding": "2.0.0"
										}
									]
								}
							]
						}
					]
				}
			}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	records, err := client.Search(context.Background(), "nginx", 50)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "CVE-2024-0001", records[0].ID)
	assert.Empty(t, records[0].AffectedRanges,
		"boundaries for another product's criteria must not apply")
}

func Test_SearchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "nginx", 50)
	assert.True(t, errors.Is(err, engine.ErrRateLimited))
}

func Test_SearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "nginx", 50)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, engine.ErrRateLimited))
}

func Test_SearchSendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apiKey")
		w.Write([]byte(`{"vulnerabilities":[]}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("secret-key"))
	_, err := client.Search(context.Background(), "nginx", 50)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
}

func Test_CriteriaMentions(t *testing.T) {
	tests := []struct {
		criteria string
		keyword  string
		want     bool
	}{
		{criteria: "cpe:2.3:a:7-zip:7-zip:*", keyword: "7 zip", want: true},
		{criteria: "cpe:2.3:a:microsoft:edge:*", keyword: "microsoft edge", want: false},
		{criteria: "cpe:2.3:a:microsoft:microsoft_edge:*", keyword: "microsoft edge", want: true},
		{criteria: "cpe:2.3:a:f5:nginx:*", keyword: "nginx", want: true},
		{criteria: "cpe:2.3:a:vendor:other:*", keyword: "nginx", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, criteriaMentions(tt.criteria, tt.keyword),
			"criteria %q keyword %q", tt.criteria, tt.keyword)
	}
}

func Test_BaseScorePrecedence(t *testing.T) {
	m := metrics{
		CVSSMetricV30: []cvssMetric{{CVSSData: cvssData{BaseScore: 6.5}}},
		CVSSMetricV2:  []cvssMetric{{CVSSData: cvssData{BaseScore: 5.0}}},
	}
	assert.Equal(t, 6.5, baseScore(m))

	m.CVSSMetricV31 = []cvssMetric{{CVSSData: cvssData{BaseScore: 8.8}}}
	assert.Equal(t, 8.8, baseScore(m))

	assert.Equal(t, 0.0, baseScore(metrics{}))
}

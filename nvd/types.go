package nvd

// Wire types for the NVD CVE API 2.0 response. Only the fields the engine
// consumes are mapped; the remote payload carries far more.

type apiResponse struct {
	ResultsPerPage  int                 `json:"resultsPerPage"`
	StartIndex      int                 `json:"startIndex"`
	TotalResults    int                 `json:"totalResults"`
	Vulnerabilities []vulnerabilityItem `json:"vulnerabilities"`
}

type vulnerabilityItem struct {
	CVE cveItem `json:"cve"`
}

type cveItem struct {
	ID             string          `json:"id"`
	Published      string          `json:"published"`
	Descriptions   []description   `json:"descriptions"`
	Metrics        metrics         `json:"metrics"`
	Configurations []configuration `json:"configurations"`
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type metrics struct {
	CVSSMetricV31 []cvssMetric `json:"cvssMetricV31"`
	CVSSMetricV30 []cvssMetric `json:"cvssMetricV30"`
	CVSSMetricV2  []cvssMetric `json:"cvssMetricV2"`
}

type cvssMetric struct {
	CVSSData cvssData `json:"cvssData"`
}

type cvssData struct {
	BaseScore float64 `json:"baseScore"`
}

type configuration struct {
	Nodes []node `json:"nodes"`
}

type node struct {
	CPEMatch []cpeMatch `json:"cpeMatch"`
}

type cpeMatch struct {
	Vulnerable            bool   `json:"vulnerable"`
	Criteria              string `json:"criteria"`
	VersionStartIncluding string `json:"versionStartIncluding"`
	VersionStartExcluding string `json:"versionStartExcluding"`
	VersionEndIncluding   string `json:"versionEndIncluding"`
	VersionEndExcluding   string `json:"versionEndExcluding"`
}

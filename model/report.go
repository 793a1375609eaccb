// Package model - inventory report types received from host collectors
package model

import "time"

// SoftwareItem is one installed package as reported by a collector.
// Version may be empty; many inventories do not report one.
type SoftwareItem struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InventoryReport is the payload a host collector posts after enumerating
// installed software.
type InventoryReport struct {
	Hostname string         `json:"hostname"`
	IP       string         `json:"ip,omitempty"`
	OS       string         `json:"os,omitempty"`
	Packages []SoftwareItem `json:"packages"`
}

// ReportSummary is a stored report without its package list.
type ReportSummary struct {
	ID           int64     `json:"id"`
	Hostname     string    `json:"hostname"`
	IP           string    `json:"ip,omitempty"`
	OS           string    `json:"os,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
	PackageCount int       `json:"package_count"`
}

// OverviewCounts feeds the dashboard top cards.
type OverviewCounts struct {
	Hosts              int `json:"total_hosts"`
	Reports            int `json:"total_reports"`
	Packages           int `json:"total_packages"`
	VulnerablePackages int `json:"vulnerable_packages"`
}

// VulnerablePackage is a cached entry with at least one CVE, for the
// dashboard "top vulnerable" table.
type VulnerablePackage struct {
	PackageName string  `json:"package_name"`
	Version     string  `json:"version,omitempty"`
	MatchCount  int     `json:"cves_found"`
	MaxSeverity float64 `json:"cvss_max"`
}

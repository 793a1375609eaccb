// Package database - handles inventory report storage and dashboard queries
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"

	"github.com/fleetscan/fleetscan-backend/model"
	"github.com/fleetscan/fleetscan-backend/util"
)

var logger = InitLogger() // setup the logger

// DBConnection wraps the SQLite handle shared by the report store and the
// lookup cache.
type DBConnection struct {
	DB *sql.DB
}

// InitLogger sets up the Zap Logger to log to the console in a human readable format
func InitLogger() *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	logger, _ := prodConfig.Build()
	return logger
}

const createSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	hostname    TEXT NOT NULL,
	ip          TEXT NOT NULL DEFAULT '',
	os          TEXT NOT NULL DEFAULT '',
	received_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_hostname ON reports (hostname);
CREATE INDEX IF NOT EXISTS idx_reports_received ON reports (received_at);

CREATE TABLE IF NOT EXISTS software (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	version   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_software_report ON software (report_id);
CREATE INDEX IF NOT EXISTS idx_software_name ON software (name);
`

// CreateSchema ensures the report tables exist.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(createSchema); err != nil {
		return xerrors.Errorf("failed to create report schema: %w", err)
	}
	return nil
}

// InitializeDatabase opens the SQLite file with backoff retry and creates
// the schema. A failure after the retry window is fatal; the service is
// useless without its store.
func InitializeDatabase(path string) DBConnection {
	var db *sql.DB

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 1 * time.Minute

	err := backoff.RetryNotify(func() error {
		var oerr error
		if db, oerr = sql.Open("sqlite", path); oerr != nil {
			return oerr
		}
		return db.Ping()
	}, bo, func(err error, _ time.Duration) {
		fmt.Printf("Retrying connection to SQLite: %v\n", err)
	})
	if err != nil {
		logger.Sugar().Fatalf("Backoff Error %v\n", err)
	}

	// SQLite allows one writer; serialize access instead of failing with
	// SQLITE_BUSY under concurrent report posts.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		logger.Sugar().Fatalf("Failed to create schema: %v", err)
	}

	logger.Sugar().Infof("Database ready at '%s'", path)
	return DBConnection{DB: db}
}

// SaveReport stores an inventory report and its package list in one
// transaction and returns the new report id.
func (c DBConnection) SaveReport(report model.InventoryReport) (int64, error) {
	tx, err := c.DB.Begin()
	if err != nil {
		return 0, xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.Exec(
		`INSERT INTO reports (hostname, ip, os, received_at) VALUES (?, ?, ?, ?)`,
		report.Hostname, report.IP, report.OS, time.Now().UTC(),
	)
	if err != nil {
		return 0, xerrors.Errorf("failed to insert report: %w", err)
	}
	reportID, err := result.LastInsertId()
	if err != nil {
		return 0, xerrors.Errorf("failed to read report id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO software (report_id, name, version) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, xerrors.Errorf("failed to prepare software insert: %w", err)
	}
	defer stmt.Close()

	for _, pkg := range report.Packages {
		if util.IsEmpty(pkg.Name) {
			continue
		}
		if _, err := stmt.Exec(reportID, pkg.Name, pkg.Version); err != nil {
			return 0, xerrors.Errorf("failed to insert software row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, xerrors.Errorf("failed to commit report: %w", err)
	}
	return reportID, nil
}

// LatestPackages returns the package list from the most recent report for
// the hostname. A host with no reports yields an empty list.
func (c DBConnection) LatestPackages(hostname string) ([]model.SoftwareItem, error) {
	rows, err := c.DB.Query(
		`SELECT s.name, s.version
		 FROM software s
		 JOIN reports r ON r.id = s.report_id
		 WHERE r.id = (
		 	SELECT id FROM reports WHERE hostname = ?
		 	ORDER BY received_at DESC, id DESC LIMIT 1
		 )
		 ORDER BY s.name`,
		hostname,
	)
	if err != nil {
		return nil, xerrors.Errorf("failed to query latest packages: %w", err)
	}
	defer rows.Close()

	packages := []model.SoftwareItem{}
	for rows.Next() {
		var item model.SoftwareItem
		if err := rows.Scan(&item.Name, &item.Version); err != nil {
			return nil, xerrors.Errorf("failed to scan software row: %w", err)
		}
		packages = append(packages, item)
	}
	return packages, rows.Err()
}

// RecentReports returns the newest report per host, most recent first.
// Superseded reports for the same host are not listed; LatestPackages is
// already scoped to the newest one.
func (c DBConnection) RecentReports(limit int) ([]model.ReportSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.DB.Query(
		`SELECT r.id, r.hostname, r.ip, r.os, r.received_at,
		        (SELECT COUNT(*) FROM software s WHERE s.report_id = r.id)
		 FROM reports r
		 WHERE r.id IN (SELECT MAX(id) FROM reports GROUP BY hostname)
		 ORDER BY r.received_at DESC, r.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, xerrors.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	reports := []model.ReportSummary{}
	for rows.Next() {
		var summary model.ReportSummary
		if err := rows.Scan(&summary.ID, &summary.Hostname, &summary.IP,
			&summary.OS, &summary.ReceivedAt, &summary.PackageCount); err != nil {
			return nil, xerrors.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, summary)
	}
	return reports, rows.Err()
}

// Overview returns the dashboard counters. Vulnerable package counts come
// from the lookup cache table, which shares this database in the sqlite
// backend; when the cache lives elsewhere the count reads zero.
func (c DBConnection) Overview() (model.OverviewCounts, error) {
	var counts model.OverviewCounts

	if err := c.DB.QueryRow(`SELECT COUNT(DISTINCT hostname) FROM reports`).Scan(&counts.Hosts); err != nil {
		return counts, xerrors.Errorf("failed to count hosts: %w", err)
	}
	if err := c.DB.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&counts.Reports); err != nil {
		return counts, xerrors.Errorf("failed to count reports: %w", err)
	}
	if err := c.DB.QueryRow(`SELECT COUNT(DISTINCT name || '@' || version) FROM software`).Scan(&counts.Packages); err != nil {
		return counts, xerrors.Errorf("failed to count packages: %w", err)
	}

	// cve_cache is created lazily by the cache backend.
	err := c.DB.QueryRow(`SELECT COUNT(*) FROM cve_cache WHERE match_count > 0`).Scan(&counts.VulnerablePackages)
	if err != nil {
		counts.VulnerablePackages = 0
	}
	return counts, nil
}

// TopVulnerable returns the cached entries with the highest severity that
// matched at least one CVE.
func (c DBConnection) TopVulnerable(limit int) ([]model.VulnerablePackage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.DB.Query(
		`SELECT package_name, version, match_count, max_severity
		 FROM cve_cache
		 WHERE match_count > 0
		 ORDER BY max_severity DESC, match_count DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		// No cache table yet means nothing vulnerable was ever recorded.
		return []model.VulnerablePackage{}, nil
	}
	defer rows.Close()

	packages := []model.VulnerablePackage{}
	for rows.Next() {
		var pkg model.VulnerablePackage
		if err := rows.Scan(&pkg.PackageName, &pkg.Version, &pkg.MatchCount, &pkg.MaxSeverity); err != nil {
			return nil, xerrors.Errorf("failed to scan vulnerable package row: %w", err)
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

// Package arangocache is the ArangoDB cache backend, for deployments that
// already run Arango and want the lookup cache co-located with report data.
package arangocache

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"golang.org/x/xerrors"

	"github.com/fleetscan/fleetscan-backend/model"
)

const collectionName = "cve_cache"

// Config carries the connection settings for the Arango backend.
type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

// Store implements cache.Store on an ArangoDB collection with a unique
// persistent index on (package_name, version). Upserts go through AQL so
// the insert-or-replace is a single server-side operation.
type Store struct {
	db  arangodb.Database
	col arangodb.Collection
	ttl time.Duration
}

type cacheDocument struct {
	PackageName    string                      `json:"package_name"`
	NormalizedName string                      `json:"normalized_name"`
	Version        string                      `json:"version"`
	QueriedAt      time.Time                   `json:"queried_at"`
	MatchCount     int                         `json:"match_count"`
	MaxSeverity    float64                     `json:"max_severity"`
	Records        []model.VulnerabilityRecord `json:"records"`
}

func connectionConfig(cfg Config) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(cfg.Username, cfg.Password),
		Endpoint:       connection.NewRoundRobinEndpoints([]string{cfg.URL}),
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// New connects to Arango with backoff, gets or creates the database and
// the cache collection, and ensures the unique key index.
func New(cfg Config, ttl time.Duration) (*Store, error) {
	ctx := context.Background()

	var client arangodb.Client
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute

	err := backoff.Retry(func() error {
		conn := connection.NewHttpConnection(connectionConfig(cfg))
		client = arangodb.NewClient(conn)
		_, verr := client.Version(ctx)
		return verr
	}, bo)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect to ArangoDB: %w", err)
	}

	var db arangodb.Database
	exists := false
	if dblist, lerr := client.Databases(ctx); lerr == nil {
		for _, dbinfo := range dblist {
			if dbinfo.Name() == cfg.Database {
				exists = true
				break
			}
		}
	}
	if exists {
		var options arangodb.GetDatabaseOptions
		if db, err = client.GetDatabase(ctx, cfg.Database, &options); err != nil {
			return nil, xerrors.Errorf("failed to get database: %w", err)
		}
	} else {
		if db, err = client.CreateDatabase(ctx, cfg.Database, nil); err != nil {
			return nil, xerrors.Errorf("failed to create database: %w", err)
		}
	}

	var col arangodb.Collection
	exists, _ = db.CollectionExists(ctx, collectionName)
	if exists {
		var options arangodb.GetCollectionOptions
		if col, err = db.GetCollection(ctx, collectionName, &options); err != nil {
			return nil, xerrors.Errorf("failed to use collection: %w", err)
		}
	} else {
		if col, err = db.CreateCollectionV2(ctx, collectionName, nil); err != nil {
			return nil, xerrors.Errorf("failed to create collection: %w", err)
		}
	}

	trueVal := true
	falseVal := false
	indexOptions := arangodb.CreatePersistentIndexOptions{
		Unique: &trueVal,
		Sparse: &falseVal,
		Name:   "cache_key",
	}
	if _, _, err = col.EnsurePersistentIndex(ctx, []string{"package_name", "version"}, &indexOptions); err != nil {
		return nil, xerrors.Errorf("failed to create cache key index: %w", err)
	}

	return &Store{db: db, col: col, ttl: ttl}, nil
}

// IsFresh reports whether an entry exists for the key and is younger than
// the freshness window.
func (s *Store) IsFresh(name, version string) bool {
	entry, err := s.Get(name, version)
	if err != nil || entry == nil {
		return false
	}
	return time.Since(entry.QueriedAt) < s.ttl
}

// Get returns the entry for the key, or nil when none exists.
func (s *Store) Get(name, version string) (*model.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		FOR doc IN cve_cache
			FILTER doc.package_name == @name AND doc.version == @version
			LIMIT 1
			RETURN doc
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"name":    name,
			"version": version,
		},
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to query cache: %w", err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}

	var doc cacheDocument
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return nil, xerrors.Errorf("failed to read cache document: %w", err)
	}

	return &model.CacheEntry{
		PackageName:    doc.PackageName,
		NormalizedName: doc.NormalizedName,
		Version:        doc.Version,
		QueriedAt:      doc.QueriedAt,
		MatchCount:     doc.MatchCount,
		MaxSeverity:    doc.MaxSeverity,
		Records:        doc.Records,
	}, nil
}

// Put upserts the entry via AQL so concurrent writers for the same key
// resolve server-side instead of racing on read-modify-write.
func (s *Store) Put(entry *model.CacheEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queriedAt := entry.QueriedAt
	if queriedAt.IsZero() {
		queriedAt = time.Now().UTC()
	}
	records := entry.Records
	if records == nil {
		records = []model.VulnerabilityRecord{}
	}

	doc := cacheDocument{
		PackageName:    entry.PackageName,
		NormalizedName: entry.NormalizedName,
		Version:        entry.Version,
		QueriedAt:      queriedAt,
		MatchCount:     entry.MatchCount,
		MaxSeverity:    entry.MaxSeverity,
		Records:        records,
	}

	query := `
		UPSERT { package_name: @name, version: @version }
			INSERT @doc
			REPLACE @doc
		IN cve_cache
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"name":    doc.PackageName,
			"version": doc.Version,
			"doc":     doc,
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to upsert cache entry: %w", err)
	}
	cursor.Close()
	return nil
}

// Invalidate removes every entry for the package name.
func (s *Store) Invalidate(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		FOR doc IN cve_cache
			FILTER doc.package_name == @name
			REMOVE doc IN cve_cache
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"name": name,
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to invalidate cache entries: %w", err)
	}
	cursor.Close()
	return nil
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/seekdb/internal/db"
)

// CreateDatabase registers a database; HSETNX guards against duplicates.
func (s *Store) CreateDatabase(ctx context.Context, tenant, name string) error {
	key := databaseKey(tenant, name)
	created, err := s.do(ctx, s.b().Hsetnx().Key(key).Field("name").Value(name).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	if created == 0 {
		return fmt.Errorf("database %s: %w", name, db.ErrKeyExists)
	}
	cmd := s.b().Hset().Key(key).FieldValue().
		FieldValue("tenant", tenant).
		FieldValue("created_at", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

func parseDatabase(tenant string, m map[string]string) db.DatabaseInfo {
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	return db.DatabaseInfo{Tenant: tenant, Name: m["name"], CreatedAt: created}
}

// GetDatabase loads a database entry.
func (s *Store) GetDatabase(ctx context.Context, tenant, name string) (db.DatabaseInfo, error) {
	m, err := s.hgetAll(ctx, databaseKey(tenant, name))
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	if len(m) == 0 {
		return db.DatabaseInfo{}, fmt.Errorf("database %s: %w", name, db.ErrKeyNotFound)
	}
	return parseDatabase(tenant, m), nil
}

// ListDatabases returns a tenant's databases ordered by name.
func (s *Store) ListDatabases(ctx context.Context, tenant string, limit, offset int) ([]db.DatabaseInfo, error) {
	keys, err := s.scan(ctx, databasePattern(tenant))
	if err != nil {
		return nil, err
	}
	hashes, err := s.hgetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]db.DatabaseInfo, 0, len(hashes))
	for _, m := range hashes {
		if len(m) > 0 {
			out = append(out, parseDatabase(tenant, m))
		}
	}
	slices.SortFunc(out, func(a, b db.DatabaseInfo) int { return strings.Compare(a.Name, b.Name) })

	if offset >= len(out) {
		return []db.DatabaseInfo{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// DeleteDatabase removes a database with all of its collections.
func (s *Store) DeleteDatabase(ctx context.Context, tenant, name string) error {
	if _, err := s.GetDatabase(ctx, tenant, name); err != nil {
		return err
	}
	scope := db.Scope{Tenant: tenant, Database: name}
	colls, err := s.ListCollections(ctx, scope)
	if err != nil {
		return err
	}
	for i := range colls {
		if err := s.DeleteCollection(ctx, scope, colls[i].Name); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			return err
		}
	}
	return s.del(ctx, databaseKey(tenant, name))
}

// CreateCollection stores the definition and creates the collection's FT index.
func (s *Store) CreateCollection(ctx context.Context, scope db.Scope, info *db.CollectionInfo) error {
	key := collectionKey(scope.Tenant, scope.Database, info.Name)
	def, err := s.recordIndex(info)
	if err != nil {
		return fmt.Errorf("collection %s index: %w", info.Name, err)
	}
	fields, meta, err := encodeDefinition(info)
	if err != nil {
		return err
	}

	created, err := s.do(ctx, s.b().Hsetnx().Key(key).Field("id").Value(info.ID).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	if created == 0 {
		return fmt.Errorf("collection %s: %w", info.Name, db.ErrKeyExists)
	}

	cmd := s.b().Hset().Key(key).FieldValue().
		FieldValue("name", info.Name).
		FieldValue("dimension", strconv.Itoa(info.Dimension)).
		FieldValue("distance", info.Distance).
		FieldValue("metadata", meta).
		FieldValue("fields", fields).
		FieldValue("created_at", strconv.FormatInt(info.CreatedAt, 10)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		_ = s.del(ctx, key)
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	if err := s.createIndex(ctx, def); err != nil {
		_ = s.del(ctx, key)
		return err
	}
	return nil
}

func encodeDefinition(info *db.CollectionInfo) (fields, meta string, err error) {
	f := info.Fields
	if f == nil {
		f = map[string]string{}
	}
	fb, err := json.Marshal(f)
	if err != nil {
		return "", "", fmt.Errorf("encode fields: %w", err)
	}
	mb := []byte("{}")
	if len(info.Metadata) > 0 {
		if mb, err = json.Marshal(info.Metadata); err != nil {
			return "", "", fmt.Errorf("encode collection metadata: %w", err)
		}
	}
	return string(fb), string(mb), nil
}

func parseCollection(m map[string]string) (db.CollectionInfo, error) {
	dim, err := strconv.Atoi(m["dimension"])
	if err != nil {
		return db.CollectionInfo{}, fmt.Errorf("collection %s dimension: %w", m["name"], err)
	}
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	info := db.CollectionInfo{
		ID:        m["id"],
		Name:      m["name"],
		Dimension: dim,
		Distance:  m["distance"],
		CreatedAt: created,
		Fields:    map[string]string{},
	}
	if raw := m["fields"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &info.Fields); err != nil {
			return db.CollectionInfo{}, fmt.Errorf("collection %s fields: %w", info.Name, err)
		}
	}
	if raw := m["metadata"]; raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &info.Metadata); err != nil {
			return db.CollectionInfo{}, fmt.Errorf("collection %s metadata: %w", info.Name, err)
		}
	}
	return info, nil
}

// GetCollection loads a collection definition by name.
func (s *Store) GetCollection(ctx context.Context, scope db.Scope, name string) (db.CollectionInfo, error) {
	m, err := s.hgetAll(ctx, collectionKey(scope.Tenant, scope.Database, name))
	if err != nil {
		return db.CollectionInfo{}, err
	}
	if len(m) == 0 {
		return db.CollectionInfo{}, fmt.Errorf("collection %s: %w", name, db.ErrKeyNotFound)
	}
	return parseCollection(m)
}

// ListCollections returns the collections of a database ordered by name.
func (s *Store) ListCollections(ctx context.Context, scope db.Scope) ([]db.CollectionInfo, error) {
	keys, err := s.scan(ctx, collectionPattern(scope.Tenant, scope.Database))
	if err != nil {
		return nil, err
	}
	hashes, err := s.hgetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]db.CollectionInfo, 0, len(hashes))
	for _, m := range hashes {
		if len(m) == 0 {
			continue
		}
		info, err := parseCollection(m)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b db.CollectionInfo) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// DeleteCollection drops the FT index with its records, then the definition.
func (s *Store) DeleteCollection(ctx context.Context, scope db.Scope, name string) error {
	info, err := s.GetCollection(ctx, scope, name)
	if err != nil {
		return err
	}
	if err := s.dropIndex(ctx, indexName(info.ID)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return err
	}
	return s.del(ctx, collectionKey(scope.Tenant, scope.Database, name))
}

// AddFields indexes new metadata fields with FT.ALTER and records them.
func (s *Store) AddFields(ctx context.Context, ref *db.CollectionRef, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	info, err := s.GetCollection(ctx, ref.Scope, ref.Name)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := info.Fields[name]; !ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	added := make([]db.IndexField, len(names))
	for i, name := range names {
		added[i] = metadataField(name, fields[name])
	}
	if err := s.alterIndex(ctx, indexName(info.ID), added); err != nil {
		return err
	}

	maps.Copy(info.Fields, fields)
	b, err := json.Marshal(info.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	cmd := s.b().Hset().Key(collectionKey(ref.Tenant, ref.Database, ref.Name)).FieldValue().
		FieldValue("fields", string(b)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

package redis

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

// flatten renders the indexed metadata fields as hash values.
func flatten(fields map[string]string, metadata map[string]any) map[string]string {
	out := make(map[string]string)
	for k, raw := range metadata {
		if _, indexed := fields[k]; !indexed {
			continue
		}
		v, ok := filter.NewValue(raw)
		if !ok {
			continue
		}
		out[k] = hashValue(v)
	}
	return out
}

// presence lists the flattened field names as one tag value.
func presence(flat map[string]string) string {
	names := slices.Sorted(maps.Keys(flat))
	return strings.Join(names, ",")
}

func hashValue(v filter.Value) string {
	switch v.Family() {
	case field.Numeric:
		return formatNum(v.Num())
	case field.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	default:
		return v.Str()
	}
}

// Mutate checks existence for the whole batch first, then pipelines the writes.
func (s *Store) Mutate(ctx context.Context, m *db.Mutation) error {
	ref := m.Collection
	keys := make([]string, len(m.Rows))
	for i := range m.Rows {
		keys[i] = recordKey(ref.ID, m.Rows[i].ID)
	}
	exists, err := s.existsMulti(ctx, keys)
	if err != nil {
		return err
	}
	var updatedMeta []int
	for i := range m.Rows {
		w := &m.Rows[i]
		switch {
		case w.Insert && exists[i]:
			return fmt.Errorf("record %s: %w", w.ID, db.ErrKeyExists)
		case !w.Insert && !exists[i]:
			return fmt.Errorf("record %s: %w", w.ID, db.ErrKeyNotFound)
		case !w.Insert && w.SetMetadata:
			updatedMeta = append(updatedMeta, i)
		}
	}

	// Stale flattened fields must be removed when metadata is replaced.
	previous := make(map[int]map[string]any, len(updatedMeta))
	if len(updatedMeta) > 0 {
		cmds := make([]rueidis.Completed, len(updatedMeta))
		for j, i := range updatedMeta {
			cmds[j] = s.b().Hget().Key(keys[i]).Field(fieldMetadata).Build()
		}
		for j, res := range s.client.DoMulti(ctx, cmds...) {
			raw, err := res.ToString()
			if err != nil {
				if rueidis.IsRedisNil(err) {
					continue
				}
				return &db.Error{Op: db.OpHGetAll, Err: err}
			}
			var old map[string]any
			if err := json.Unmarshal([]byte(raw), &old); err == nil {
				previous[updatedMeta[j]] = old
			}
		}
	}

	var cmds []rueidis.Completed
	for i := range m.Rows {
		set, del, err := recordChanges(ref, &m.Rows[i], previous[i])
		if err != nil {
			return err
		}
		if len(del) > 0 {
			cmds = append(cmds, s.b().Hdel().Key(keys[i]).Field(del...).Build())
		}
		if len(set) > 0 {
			cmds = append(cmds, s.hset(keys[i], set))
		}
	}
	return s.doMulti(ctx, db.OpHSet, cmds)
}

// recordChanges computes the hash fields to set and delete for one write.
func recordChanges(ref *db.CollectionRef, w *db.RowWrite, previous map[string]any) (map[string]string, []string, error) {
	set := make(map[string]string)
	var del []string
	if w.Insert {
		set[fieldID] = w.ID
	}
	if w.Document != nil {
		if *w.Document == "" {
			if !w.Insert {
				del = append(del, fieldDocument)
			}
		} else {
			set[fieldDocument] = *w.Document
		}
	}
	if w.Embedding != nil {
		set[fieldVector] = string(db.EncodeVector(w.Embedding))
	}
	if w.Insert || w.SetMetadata {
		flat := flatten(ref.Fields, w.Metadata)
		for k := range flatten(ref.Fields, previous) {
			if _, kept := flat[k]; !kept {
				del = append(del, k)
			}
		}
		for k, v := range flat {
			set[k] = v
		}
		if len(flat) > 0 {
			set[fieldKeys] = presence(flat)
		} else if !w.Insert {
			del = append(del, fieldKeys)
		}
		if len(w.Metadata) > 0 {
			b, err := json.Marshal(w.Metadata)
			if err != nil {
				return nil, nil, fmt.Errorf("record %s: encode metadata: %w", w.ID, err)
			}
			set[fieldMetadata] = string(b)
		} else if !w.Insert {
			del = append(del, fieldMetadata)
		}
	}
	return set, del, nil
}

// Query reads rows sorted by id, or by ascending distance when a vector is set.
func (s *Store) Query(ctx context.Context, q *db.RowQuery) ([]db.Row, error) {
	if q.Vector != nil {
		return s.searchKNN(ctx, q)
	}
	return s.searchList(ctx, q)
}

// SearchText ranks matching rows by relevance to the terms.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) ([]db.Row, error) {
	return s.searchText(ctx, q)
}

// Delete removes every record matching the predicate.
func (s *Store) Delete(ctx context.Context, ref *db.CollectionRef, p *predicate.Predicate) (int, error) {
	query := queryOf(p)
	deleted := 0
	for {
		keys, err := s.searchKeys(ctx, indexName(ref.ID), query, deleteBatch)
		if err != nil {
			return deleted, err
		}
		if len(keys) == 0 {
			return deleted, nil
		}
		if err := s.del(ctx, keys...); err != nil {
			return deleted, err
		}
		deleted += len(keys)
		if len(keys) < deleteBatch {
			return deleted, nil
		}
	}
}

// ExistingIDs reports which ids have a stored record.
func (s *Store) ExistingIDs(ctx context.Context, ref *db.CollectionRef, ids []string) (map[string]bool, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(ref.ID, id)
	}
	exists, err := s.existsMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for i, id := range ids {
		if exists[i] {
			out[id] = true
		}
	}
	return out, nil
}

// Count returns the number of indexed records.
func (s *Store) Count(ctx context.Context, ref *db.CollectionRef) (int, error) {
	return s.searchCount(ctx, indexName(ref.ID), "*")
}

package redis

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

const deleteBatch = 1000

// pageSize is the FT.SEARCH window of one round trip. Longer reads page.
var pageSize = 10000

// searchEntry is one FT.SEARCH hit.
type searchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

func queryOf(p *predicate.Predicate) string {
	if p == nil || p.Clause == "" {
		return "*"
	}
	return p.Clause
}

func returnFields(inc db.Include, extra ...string) []string {
	fields := []string{fieldID}
	if inc.Documents {
		fields = append(fields, fieldDocument)
	}
	if inc.Metadatas {
		fields = append(fields, fieldMetadata)
	}
	if inc.Embeddings {
		fields = append(fields, fieldVector)
	}
	return append(fields, extra...)
}

func appendReturn(args, fields []string) []string {
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

func (s *Store) ftSearch(ctx context.Context, args []string) ([]rueidis.RedisMessage, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return raw, nil
}

// searchPages runs one FT.SEARCH query window by window, starting at
// offset, until limit entries are read or the matches run out.
// limit <= 0 reads every match. head holds the arguments before LIMIT.
func (s *Store) searchPages(
	ctx context.Context, head []string, offset, limit int,
	parse func([]rueidis.RedisMessage) []searchEntry,
) ([]searchEntry, error) {
	var out []searchEntry
	for {
		size := pageSize
		if limit > 0 {
			size = min(pageSize, limit-len(out))
		}
		args := slices.Concat(head, []string{"LIMIT", strconv.Itoa(offset), strconv.Itoa(size), "DIALECT", "2"})
		raw, err := s.ftSearch(ctx, args)
		if err != nil {
			return nil, err
		}
		page := parse(raw)
		out = append(out, page...)
		offset += len(page)
		if len(page) < size || offset >= totalOf(raw) || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
	}
}

func totalOf(raw []rueidis.RedisMessage) int {
	if len(raw) == 0 {
		return 0
	}
	n, err := raw[0].AsInt64()
	if err != nil {
		return 0
	}
	return int(n)
}

// searchList returns matching rows in id order.
func (s *Store) searchList(ctx context.Context, q *db.RowQuery) ([]db.Row, error) {
	head := []string{indexName(q.Collection.ID), queryOf(q.Predicate)}
	head = appendReturn(head, returnFields(q.Include))
	head = append(head, "SORTBY", fieldID, "ASC")
	entries, err := s.searchPages(ctx, head, q.Offset, q.Limit, parseListResult)
	if err != nil {
		return nil, err
	}
	return toRows(entries, q.Include)
}

// searchKNN pre-filters with the predicate and ranks by vector distance.
func (s *Store) searchKNN(ctx context.Context, q *db.RowQuery) ([]db.Row, error) {
	k := q.Offset + q.Limit
	if q.Limit <= 0 {
		total, err := s.searchCount(ctx, indexName(q.Collection.ID), "*")
		if err != nil {
			return nil, err
		}
		k = total
	}
	if k == 0 {
		return nil, nil
	}
	knn := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", k, fieldVector, fieldDistance)
	query := "*=>" + knn
	if q.Predicate != nil && q.Predicate.Clause != "" {
		query = "(" + q.Predicate.Clause + ")=>" + knn
	}

	args := []string{indexName(q.Collection.ID), query}
	args = appendReturn(args, returnFields(q.Include, fieldDistance))
	args = append(args,
		"PARAMS", "2", "BLOB", string(db.EncodeVector(q.Vector)),
		"SORTBY", fieldDistance, "ASC",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	)
	raw, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	rows, err := toRows(parseListResult(raw), q.Include)
	if err != nil {
		return nil, err
	}
	l2 := q.Collection.Distance == db.MetricL2
	for i := range rows {
		if l2 {
			// L2 scores are squared euclidean distances.
			rows[i].Distance = math.Sqrt(max(0, rows[i].Distance))
		}
	}
	slices.SortStableFunc(rows, func(a, b db.Row) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return db.Window(rows, q.Limit, q.Offset), nil
}

// searchText ranks the rows matching the predicate and any term by BM25
// score. When fewer than limit rows match a term, the remaining predicate
// rows follow with score 0 in id order.
func (s *Store) searchText(ctx context.Context, q *db.TextQuery) ([]db.Row, error) {
	list := &db.RowQuery{Collection: q.Collection, Predicate: q.Predicate, Limit: q.Limit, Include: q.Include}
	terms := termQuery(q.Terms)
	if terms == "" {
		return s.searchList(ctx, list)
	}

	query := terms
	if q.Predicate != nil && q.Predicate.Clause != "" {
		query = "(" + q.Predicate.Clause + ") " + terms
	}
	head := []string{indexName(q.Collection.ID), query}
	head = appendReturn(head, returnFields(q.Include))
	head = append(head, "WITHSCORES")
	entries, err := s.searchPages(ctx, head, 0, q.Limit, parseBM25Result)
	if err != nil {
		return nil, err
	}
	ranked, err := toRows(entries, q.Include)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(ranked, func(a, b db.Row) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(ranked) >= q.Limit {
		return ranked[:q.Limit], nil
	}

	// At most len(ranked) listed rows are duplicates, so limit rows suffice.
	rest, err := s.searchList(ctx, list)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		seen[r.ID] = true
	}
	for _, r := range rest {
		if !seen[r.ID] {
			r.Score = 0
			ranked = append(ranked, r)
		}
	}
	return db.Window(ranked, q.Limit, 0), nil
}

// searchKeys returns up to limit keys matching query.
func (s *Store) searchKeys(ctx context.Context, index, query string, limit int) ([]string, error) {
	args := []string{index, query, "NOCONTENT", "LIMIT", "0", strconv.Itoa(limit), "DIALECT", "2"}
	raw, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, nil
	}
	keys := make([]string, 0, len(raw)-1)
	for _, m := range raw[1:] {
		key, err := m.ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// searchCount returns document count via FT.SEARCH with LIMIT 0 0.
func (s *Store) searchCount(ctx context.Context, index, query string) (int, error) {
	raw, err := s.ftSearch(ctx, []string{index, query, "LIMIT", "0", "0", "DIALECT", "2"})
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// --- Result parsing ---

func toRows(entries []searchEntry, inc db.Include) ([]db.Row, error) {
	rows := make([]db.Row, 0, len(entries))
	for _, e := range entries {
		row := db.Row{ID: e.Fields[fieldID], Score: e.Score}
		if doc, ok := e.Fields[fieldDocument]; ok && inc.Documents {
			row.Document = &doc
		}
		if raw, ok := e.Fields[fieldMetadata]; ok && inc.Metadatas && raw != "" {
			if err := json.Unmarshal([]byte(raw), &row.Metadata); err != nil {
				return nil, fmt.Errorf("record %s: decode metadata: %w", row.ID, err)
			}
		}
		if raw, ok := e.Fields[fieldVector]; ok && inc.Embeddings {
			v, err := db.DecodeVector([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", row.ID, err)
			}
			row.Embedding = v
		}
		if d, ok := e.Fields[fieldDistance]; ok {
			f, err := strconv.ParseFloat(d, 64)
			if err != nil {
				return nil, fmt.Errorf("record %s: parse distance: %w", row.ID, err)
			}
			row.Distance = f
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseListResult(raw []rueidis.RedisMessage) []searchEntry {
	if len(raw) < 2 {
		return nil
	}
	entries := make([]searchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, searchEntry{Key: key, Fields: parseFieldPairs(fields)})
	}
	return entries
}

func parseBM25Result(raw []rueidis.RedisMessage) []searchEntry {
	if len(raw) < 2 {
		return nil
	}
	entries := make([]searchEntry, 0, len(raw)/3)
	// 3-stride: [total, key1, score1, fields1, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, searchEntry{Key: key, Score: score, Fields: parseFieldPairs(fields)})
	}
	return entries
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

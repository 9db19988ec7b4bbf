package redis

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/kailas-cloud/seekdb/internal/db"
)

// recordIndex defines the FT index of one collection.
func (s *Store) recordIndex(info *db.CollectionInfo) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName(info.ID)).
		Prefix(recordPrefix(info.ID)).
		NoStopWords().
		SortableTag(fieldID).
		Text(fieldDocument).
		Field(db.IndexField{Name: fieldKeys, Type: db.IndexFieldTag, TagCaseSensitive: true}).
		VectorHNSW(fieldVector, info.Dimension, db.MetricFor(info.Distance), s.cfg.HNSWM, s.cfg.HNSWEFConstruction)

	names := make([]string, 0, len(info.Fields))
	for name := range info.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.Field(metadataField(name, info.Fields[name]))
	}
	return b.Build()
}

// metadataField indexes numeric fields as NUMERIC and the rest as TAG.
func metadataField(name, family string) db.IndexField {
	if family == "numeric" {
		return db.IndexField{Name: name, Type: db.IndexFieldNumeric}
	}
	return db.IndexField{Name: name, Type: db.IndexFieldTag, TagCaseSensitive: true}
}

func (s *Store) createIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// dropIndex removes an FT index together with the hashes it covers.
func (s *Store) dropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// alterIndex adds fields to an existing FT index.
func (s *Store) alterIndex(ctx context.Context, name string, fields []db.IndexField) error {
	for i := range fields {
		fieldArgs, err := buildFieldArgs(&fields[i])
		if err != nil {
			return err
		}
		args := append([]string{name, "SCHEMA", "ADD"}, fieldArgs...)
		cmd := s.b().Arbitrary("FT.ALTER").Args(args...).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "duplicate") {
				continue
			}
			return &db.Error{Op: db.OpAlterIndex, Err: err}
		}
	}
	return nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	if idx.NoStopWords {
		args = append(args, "STOPWORDS", "0")
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}

	switch f.Type {
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")
	case db.IndexFieldText:
		args = append(args, "TEXT")
	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case db.IndexFieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)
	default:
		return nil, errors.New("unknown field type")
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args, nil
}

func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result, nil
}

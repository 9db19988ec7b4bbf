package collection

import (
	"sort"

	"github.com/kailas-cloud/seekdb/internal/db"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

func toInfo(col domcol.Collection) *db.CollectionInfo {
	return &db.CollectionInfo{
		ID:        col.ID(),
		Name:      col.Name(),
		Dimension: col.Dimension(),
		Distance:  string(col.Distance()),
		Metadata:  col.Metadata(),
		Fields:    fieldMap(col.Fields()),
		CreatedAt: col.CreatedAt(),
	}
}

func fromInfo(info *db.CollectionInfo) domcol.Collection {
	names := make([]string, 0, len(info.Fields))
	for name := range info.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]field.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, field.Reconstruct(name, field.Family(info.Fields[name])))
	}
	return domcol.Reconstruct(
		info.ID, info.Name,
		domcol.Configuration{Dimension: info.Dimension, Distance: domcol.Distance(info.Distance)},
		info.Metadata, fields, info.CreatedAt,
	)
}

func fieldMap(fields []field.Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name()] = string(f.Family())
	}
	return m
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/DryDB/internal/errs"
)

// Introspect builds the full DatabaseSchema by walking the session's catalog.
// It is all-or-nothing: the first failing catalog query aborts the call and
// no partial schema is returned. Tables keep catalog order and columns keep
// ordinal order.
func Introspect(ctx context.Context, s Session) (*DatabaseSchema, error) {
	refs, err := s.ListTables(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindIntrospectionFailed, "listing tables", err)
	}

	tables := make([]TableInfo, 0, len(refs))
	for _, ref := range refs {
		info, err := inspectTable(ctx, s, ref)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindIntrospectionFailed, fmt.Sprintf("inspecting table %q", ref.Name), err)
		}
		tables = append(tables, info)
	}

	return &DatabaseSchema{Tables: tables, LastUpdated: time.Now().UTC()}, nil
}

func inspectTable(ctx context.Context, s Session, ref TableRef) (TableInfo, error) {
	cols, err := s.ListColumns(ctx, ref)
	if err != nil {
		return TableInfo{}, err
	}

	pks, err := s.ListPrimaryKeys(ctx, ref)
	if err != nil {
		return TableInfo{}, err
	}

	fks, err := s.ListForeignKeys(ctx, ref)
	if err != nil {
		return TableInfo{}, err
	}

	pkSet := toSet(pks)
	fkSet := toSet(fks)
	for i := range cols {
		cols[i].IsPrimaryKey = cols[i].IsPrimaryKey || pkSet[cols[i].Name]
		cols[i].IsForeignKey = fkSet[cols[i].Name]
	}

	return TableInfo{Name: ref.Name, Schema: ref.Schema, Columns: cols}, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// ParseNullable normalizes catalog "YES"/"NO" flags.
func ParseNullable(flag string) bool {
	return flag == "YES" || flag == "yes" || flag == "Y" || flag == "1"
}

package core

import (
	"context"
	"strings"
)

// LoadRequest fetches one record by key. SkipRelations suppresses the
// relation and multi-select expansion, returning the bare row.
type LoadRequest struct {
	ID            int64 `json:"id"`
	SkipRelations bool  `json:"skipRelations"`
}

// Load fetches one record by key, scoped by soft-delete state and the
// caller's tenant. OneToMany relations fold into the record as virtual
// comma-joined id properties; multi-select columns fold per their declared
// format. ErrNotFound covers missing, soft-deleted, and out-of-scope keys
// alike.
func (e *Engine) Load(ctx context.Context, p *Principal, entity string, req LoadRequest) (Record, error) {
	ctx, err := requirePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	if req.ID <= 0 {
		return nil, Validationf("load of %s requires a positive id", desc.Name)
	}

	ps := NewParamSet(e.db.dialect)
	stmt := NewSelect(desc.TableName + " Main")
	stmt.Column("Main.*")
	if desc.StandardTable {
		for _, j := range e.auditJoins() {
			stmt.Join(j)
		}
		stmt.Column(e.auditColumns()...)
	}
	stmt.Where("Main." + desc.KeyField + " = " + ps.Bind("id", req.ID))
	stmt.Where(softDeletePredicate(desc, "Main"))
	tenant, err := tenantPredicate(ps, desc, p, "Main")
	if err != nil {
		return nil, err
	}
	stmt.Where(tenant)

	records, err := e.db.queryRecords(ctx, nil, stmt.SQL(), ps)
	if err != nil {
		return nil, e.db.errMap.Map(err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	rec := records[0]

	if req.SkipRelations {
		return rec, nil
	}

	for i := range desc.Relations {
		rel := &desc.Relations[i]
		if rel.Kind != OneToMany {
			continue
		}
		ids, err := e.loadRelationIDs(ctx, nil, desc, rel, req.ID)
		if err != nil {
			return nil, e.db.errMap.Map(err)
		}
		rec[rel.Property] = joinIDs(ids)
	}

	for i := range desc.MultiSelect {
		ms := &desc.MultiSelect[i]
		values, err := e.loadMultiSelect(ctx, nil, ms, req.ID)
		if err != nil {
			return nil, e.db.errMap.Map(err)
		}
		if ms.Format == MultiSelectArray {
			rec[ms.Column] = values
		} else {
			rec[ms.Column] = strings.Join(values, ",")
		}
	}

	return rec, nil
}

// loadMultiSelect returns the distinct stored values of one multi-select
// column, blanks dropped.
func (e *Engine) loadMultiSelect(ctx context.Context, tx *Tx, ms *MultiSelectColumn, parentID int64) ([]string, error) {
	ps := NewParamSet(e.db.dialect)
	sqlText := "SELECT DISTINCT " + ms.ValueColumn + " FROM " + ms.Table +
		" WHERE " + ms.ForeignKey + " = " + ps.Bind("id", parentID) +
		" ORDER BY " + ms.ValueColumn

	records, err := e.db.queryRecords(ctx, tx, sqlText, ps)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(records))
	for _, rec := range records {
		if v := rec.String(ms.ValueColumn); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

package core

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParseIDList parses a comma-separated id list into deduplicated positive
// integers, preserving order. Blank and non-positive entries are dropped;
// non-numeric entries are a validation error.
func ParseIDList(csv string) ([]int64, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, Validationf("invalid value %q in id list", p)
		}
		if n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	return ids, nil
}

// relationCountJoin emits the LEFT OUTER JOIN contributing a per-relation
// count column to list queries. The sub-select carries the soft-delete
// predicate whenever the descriptor does.
func relationCountJoin(desc *Descriptor, rel *Relation) string {
	var b strings.Builder
	b.WriteString("LEFT OUTER JOIN (SELECT ")
	b.WriteString(rel.ForeignKey)
	b.WriteString(", COUNT(1) AS ")
	b.WriteString(rel.Name)
	b.WriteString("Count FROM ")
	b.WriteString(rel.Table)
	wrote := false
	if desc.SoftDelete() {
		b.WriteString(" WHERE IsDeleted = 0")
		wrote = true
	}
	if rel.Where != "" {
		if wrote {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" WHERE ")
		}
		b.WriteString(rel.Where)
	}
	b.WriteString(" GROUP BY ")
	b.WriteString(rel.ForeignKey)
	b.WriteString(") ")
	b.WriteString(rel.Name)
	b.WriteString(" ON ")
	b.WriteString(rel.Name)
	b.WriteString(".")
	b.WriteString(rel.ForeignKey)
	b.WriteString(" = Main.")
	b.WriteString(desc.KeyField)
	return b.String()
}

// oneToOneJoin emits the LEFT OUTER JOIN embedding a looked-up row's
// columns into list results, using the declared join-column mapping.
func oneToOneJoin(rel *Relation) string {
	cols := make([]string, 0, len(rel.JoinOn))
	for main := range rel.JoinOn {
		cols = append(cols, main)
	}
	sort.Strings(cols)

	conds := make([]string, 0, len(cols))
	for _, main := range cols {
		conds = append(conds, rel.Name+"."+rel.JoinOn[main]+" = Main."+main)
	}
	return "LEFT OUTER JOIN " + rel.Table + " " + rel.Name + " ON " + strings.Join(conds, " AND ")
}

// loadRelationIDs returns the live associated ids of one parent row.
func (e *Engine) loadRelationIDs(ctx context.Context, tx *Tx, desc *Descriptor, rel *Relation, parentID int64) ([]int64, error) {
	ps := NewParamSet(e.db.dialect)
	idPh := ps.Bind("id", parentID)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(rel.ValueField)
	b.WriteString(" FROM ")
	b.WriteString(rel.Table)
	b.WriteString(" WHERE ")
	b.WriteString(rel.ForeignKey)
	b.WriteString(" = ")
	b.WriteString(idPh)
	if desc.SoftDelete() {
		b.WriteString(" AND IsDeleted = 0")
	}
	if rel.Where != "" {
		b.WriteString(" AND ")
		b.WriteString(rel.Where)
	}

	records, err := e.db.queryRecords(ctx, tx, b.String(), ps)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.Int64(rel.ValueField))
	}
	return ids, nil
}

// reconcileRelation diffs the selected id set against the persisted one:
// removed associations are soft-deleted (scoped by NOT IN over the selected
// set), previously soft-deleted re-selections are reactivated, and missing
// rows are inserted behind a NOT EXISTS guard so a concurrent insert cannot
// produce a duplicate key.
func (e *Engine) reconcileRelation(ctx context.Context, tx *Tx, desc *Descriptor, rel *Relation, parentID int64, selected []int64, p *Principal) error {
	now := time.Now().UTC()

	// Soft-delete (or remove) associations absent from the selected set.
	ps := NewParamSet(e.db.dialect)
	idPh := ps.Bind("id", parentID)
	var b strings.Builder
	if desc.SoftDelete() {
		b.WriteString("UPDATE ")
		b.WriteString(rel.Table)
		b.WriteString(" SET IsDeleted = 1")
		if desc.StandardTable {
			b.WriteString(", ModifiedOn = ")
			b.WriteString(ps.Bind("modifiedOn", now))
			b.WriteString(", ModifiedByUserId = ")
			b.WriteString(ps.Bind("modifiedBy", p.UserID))
		}
		b.WriteString(" WHERE ")
		b.WriteString(rel.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(idPh)
		b.WriteString(" AND IsDeleted = 0")
	} else {
		b.WriteString("DELETE FROM ")
		b.WriteString(rel.Table)
		b.WriteString(" WHERE ")
		b.WriteString(rel.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(idPh)
	}
	if len(selected) > 0 {
		frag, n, err := ps.BindList(rel.ValueField, "keep", int64Values(selected), ListOptions{
			Operator: "not in",
			SQLType:  "bigint",
		})
		if err != nil {
			return err
		}
		if n > 0 {
			b.WriteString(" AND ")
			b.WriteString(frag)
		}
	}
	if _, err := e.db.execStmt(ctx, tx, b.String(), ps); err != nil {
		return e.db.errMap.Map(err)
	}

	if len(selected) == 0 {
		return nil
	}

	// Reactivate soft-deleted rows that are selected again.
	if desc.SoftDelete() {
		ps = NewParamSet(e.db.dialect)
		idPh = ps.Bind("id", parentID)
		b.Reset()
		b.WriteString("UPDATE ")
		b.WriteString(rel.Table)
		b.WriteString(" SET IsDeleted = 0")
		if desc.StandardTable {
			b.WriteString(", ModifiedOn = ")
			b.WriteString(ps.Bind("modifiedOn", now))
			b.WriteString(", ModifiedByUserId = ")
			b.WriteString(ps.Bind("modifiedBy", p.UserID))
		}
		b.WriteString(" WHERE ")
		b.WriteString(rel.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(idPh)
		b.WriteString(" AND IsDeleted = 1")
		frag, n, err := ps.BindList(rel.ValueField, "sel", int64Values(selected), ListOptions{
			Operator: "in",
			SQLType:  "bigint",
		})
		if err != nil {
			return err
		}
		if n > 0 {
			b.WriteString(" AND ")
			b.WriteString(frag)
			if _, err := e.db.execStmt(ctx, tx, b.String(), ps); err != nil {
				return e.db.errMap.Map(err)
			}
		}
	}

	// Insert selections not yet linked at all.
	for _, id := range selected {
		ps = NewParamSet(e.db.dialect)
		fkPh := ps.Bind("fk", parentID)
		valPh := ps.Bind("val", id)

		b.Reset()
		b.WriteString("INSERT INTO ")
		b.WriteString(rel.Table)
		b.WriteString(" (")
		b.WriteString(rel.ForeignKey)
		b.WriteString(", ")
		b.WriteString(rel.ValueField)
		if desc.SoftDelete() {
			b.WriteString(", IsDeleted")
		}
		if desc.StandardTable {
			b.WriteString(", CreatedOn, CreatedByUserId, ModifiedOn, ModifiedByUserId")
		}
		b.WriteString(") SELECT ")
		b.WriteString(fkPh)
		b.WriteString(", ")
		b.WriteString(valPh)
		if desc.SoftDelete() {
			b.WriteString(", 0")
		}
		if desc.StandardTable {
			b.WriteString(", ")
			b.WriteString(ps.Bind("createdOn", now))
			b.WriteString(", ")
			b.WriteString(ps.Bind("createdBy", p.UserID))
			b.WriteString(", ")
			b.WriteString(ps.Bind("modifiedOn", now))
			b.WriteString(", ")
			b.WriteString(ps.Bind("modifiedBy", p.UserID))
		}
		b.WriteString(" FROM (SELECT 1 AS n) AS OneRow WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(rel.Table)
		b.WriteString(" WHERE ")
		b.WriteString(rel.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("fkCheck", parentID))
		b.WriteString(" AND ")
		b.WriteString(rel.ValueField)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("valCheck", id))
		b.WriteString(")")

		if _, err := e.db.execStmt(ctx, tx, b.String(), ps); err != nil {
			return e.db.errMap.Map(err)
		}
	}
	return nil
}

// int64Values widens an id slice for the binder.
func int64Values(ids []int64) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

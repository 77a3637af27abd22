package core

import (
	"context"
	"strings"
	"time"
)

// DeleteRequest removes one record by key.
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// DeleteResult reports the affected main-table row count.
type DeleteResult struct {
	Affected int64 `json:"affected"`
}

// Delete removes one record, soft or hard per the descriptor. Every guard
// table is counted first: a single live dependent row blocks the whole
// operation with a ReferenceError before anything mutates. Cascade tables
// and the main row then go down together in one transaction; tenant scope
// applies to the main row, so an out-of-scope key reports ErrNotFound.
func (e *Engine) Delete(ctx context.Context, p *Principal, entity string, req DeleteRequest) (*DeleteResult, error) {
	ctx, err := requirePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	if req.ID <= 0 {
		return nil, Validationf("delete of %s requires a positive id", desc.Name)
	}

	for i := range desc.RelatedFields {
		guard := &desc.RelatedFields[i]
		count, err := e.countGuardRows(ctx, desc, guard, req.ID)
		if err != nil {
			return nil, e.db.errMap.Map(err)
		}
		if count > 0 {
			return nil, &ReferenceError{Table: guard.Table, Count: count}
		}
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range desc.Cascade {
		if err := e.deleteCascade(ctx, tx, desc, p, &desc.Cascade[i], req.ID); err != nil {
			return nil, err
		}
	}

	affected, err := e.deleteMainRow(ctx, tx, desc, p, req.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, e.db.errMap.Map(err)
	}
	return &DeleteResult{Affected: affected}, nil
}

// countGuardRows counts live references to the row in one guard table.
func (e *Engine) countGuardRows(ctx context.Context, desc *Descriptor, guard *RelatedField, id int64) (int64, error) {
	ps := NewParamSet(e.db.dialect)
	sqlText := "SELECT COUNT(1) AS GuardCount FROM " + guard.Table +
		" WHERE " + guard.ForeignKey + " = " + ps.Bind("id", id)
	if desc.SoftDelete() {
		sqlText += " AND IsDeleted = 0"
	}
	v, err := e.db.queryScalar(ctx, nil, sqlText, ps)
	if err != nil {
		return 0, err
	}
	n, _ := toInt64(v)
	return n, nil
}

// deleteCascade removes one cascade table's rows for the parent.
func (e *Engine) deleteCascade(ctx context.Context, tx *Tx, desc *Descriptor, p *Principal, c *CascadeTable, id int64) error {
	ps := NewParamSet(e.db.dialect)
	var b strings.Builder
	if c.HardDelete || !desc.SoftDelete() {
		b.WriteString("DELETE FROM ")
		b.WriteString(c.Table)
		b.WriteString(" WHERE ")
		b.WriteString(c.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("id", id))
	} else {
		b.WriteString("UPDATE ")
		b.WriteString(c.Table)
		b.WriteString(" SET IsDeleted = 1")
		if desc.StandardTable {
			now := time.Now().UTC()
			b.WriteString(", ModifiedOn = ")
			b.WriteString(ps.Bind("modifiedOn", now))
			b.WriteString(", ModifiedByUserId = ")
			b.WriteString(ps.Bind("modifiedBy", p.UserID))
		}
		b.WriteString(" WHERE ")
		b.WriteString(c.ForeignKey)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("id", id))
		b.WriteString(" AND IsDeleted = 0")
	}
	if _, err := e.db.execStmt(ctx, tx, b.String(), ps); err != nil {
		return e.db.errMap.Map(err)
	}
	return nil
}

// deleteMainRow removes the parent row itself, tenant-scoped.
func (e *Engine) deleteMainRow(ctx context.Context, tx *Tx, desc *Descriptor, p *Principal, id int64) (int64, error) {
	ps := NewParamSet(e.db.dialect)
	var b strings.Builder
	if desc.SoftDelete() {
		b.WriteString("UPDATE ")
		b.WriteString(desc.TableName)
		b.WriteString(" SET IsDeleted = 1")
		if desc.StandardTable {
			now := time.Now().UTC()
			b.WriteString(", ModifiedOn = ")
			b.WriteString(ps.Bind("modifiedOn", now))
			b.WriteString(", ModifiedByUserId = ")
			b.WriteString(ps.Bind("modifiedBy", p.UserID))
		}
		b.WriteString(" WHERE ")
		b.WriteString(desc.KeyField)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("id", id))
		b.WriteString(" AND IsDeleted = 0")
	} else {
		b.WriteString("DELETE FROM ")
		b.WriteString(desc.TableName)
		b.WriteString(" WHERE ")
		b.WriteString(desc.KeyField)
		b.WriteString(" = ")
		b.WriteString(ps.Bind("id", id))
	}

	tenant, err := tenantPredicate(ps, desc, p, desc.TableName)
	if err != nil {
		return 0, err
	}
	if tenant != "" {
		b.WriteString(" AND ")
		b.WriteString(tenant)
	}

	affected, err := e.db.execStmt(ctx, tx, b.String(), ps)
	if err != nil {
		return 0, e.db.errMap.Map(err)
	}
	return affected, nil
}

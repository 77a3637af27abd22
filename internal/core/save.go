package core

import (
	"context"
	"strings"
	"time"
)

// SaveRequest carries one record to persist. A zero ID inserts; a positive
// ID updates. Values holds column values plus any virtual relation or
// multi-select properties the descriptor declares.
type SaveRequest struct {
	ID     int64                  `json:"id"`
	Values map[string]interface{} `json:"values"`
}

// SaveResult reports the persisted key and whether a row was created.
type SaveResult struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

// systemColumns are never writable by callers; the engine owns them.
var systemColumns = map[string]bool{
	"IsDeleted":        true,
	"CreatedOn":        true,
	"CreatedByUserId":  true,
	"ModifiedOn":       true,
	"ModifiedByUserId": true,
}

// Save inserts or updates one record inside a transaction, then reconciles
// every declared OneToMany relation and multi-select column against the
// supplied virtual properties. Tenant ownership is verified before any
// write: updating a row outside the caller's scope fails with ErrNotFound,
// and a caller-supplied tenant id that contradicts the stored one is a
// SecurityError.
func (e *Engine) Save(ctx context.Context, p *Principal, entity string, req SaveRequest) (*SaveResult, error) {
	ctx, err := requirePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	if len(req.Values) == 0 {
		return nil, Validationf("save of %s carries no values", desc.Name)
	}

	values := make(map[string]interface{}, len(req.Values))
	for k, v := range req.Values {
		values[k] = v
	}

	relationIDs, err := extractRelationSelections(desc, values)
	if err != nil {
		return nil, err
	}
	msValues, err := extractMultiSelectValues(desc, values)
	if err != nil {
		return nil, err
	}
	stripColumns(desc, values)

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := e.saveRow(ctx, tx, desc, p, req.ID, values)
	if err != nil {
		return nil, err
	}

	for name, selected := range relationIDs {
		rel := desc.relation(name)
		if err := e.reconcileRelation(ctx, tx, desc, rel, result.ID, selected, p); err != nil {
			return nil, err
		}
	}
	for i := range desc.MultiSelect {
		ms := &desc.MultiSelect[i]
		selected, ok := msValues[ms.Column]
		if !ok {
			continue
		}
		if err := e.reconcileMultiSelect(ctx, tx, ms, result.ID, selected); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, e.db.errMap.Map(err)
	}
	return result, nil
}

// saveRow performs the INSERT or UPDATE of the main row.
func (e *Engine) saveRow(ctx context.Context, tx *Tx, desc *Descriptor, p *Principal, id int64, values map[string]interface{}) (*SaveResult, error) {
	now := time.Now().UTC()

	if id > 0 {
		if err := e.checkOwnership(ctx, tx, desc, p, id, values); err != nil {
			return nil, err
		}
		// Rows never move between tenants.
		delete(values, "ClientId")

		if desc.StandardTable {
			values["ModifiedOn"] = now
			values["ModifiedByUserId"] = p.UserID
		}
		if err := e.updateRow(ctx, tx, desc, p, id, values); err != nil {
			return nil, err
		}
		return &SaveResult{ID: id}, nil
	}

	if desc.ClientBased {
		if supplied, ok := values["ClientId"]; ok {
			cid, valid := toInt64(supplied)
			if !valid || !p.InScope(cid) {
				return nil, &SecurityError{Msg: "client id outside caller scope"}
			}
			values["ClientId"] = cid
		} else {
			values["ClientId"] = p.ClientID
		}
	}
	if desc.StandardTable {
		values["CreatedOn"] = now
		values["CreatedByUserId"] = p.UserID
		values["ModifiedOn"] = now
		values["ModifiedByUserId"] = p.UserID
	}
	if desc.SoftDelete() {
		values["IsDeleted"] = 0
	}

	newID, err := e.insertRow(ctx, tx, desc, values)
	if err != nil {
		return nil, err
	}
	return &SaveResult{ID: newID, Created: true}, nil
}

// checkOwnership verifies the targeted row exists inside the caller's
// scope before anything is written. A supplied tenant id that disagrees
// with the stored one is rejected outright.
func (e *Engine) checkOwnership(ctx context.Context, tx *Tx, desc *Descriptor, p *Principal, id int64, values map[string]interface{}) error {
	if !desc.ClientBased {
		return e.checkExists(ctx, tx, desc, id)
	}

	ps := NewParamSet(e.db.dialect)
	sqlText := "SELECT ClientId FROM " + desc.TableName +
		" WHERE " + desc.KeyField + " = " + ps.Bind("id", id)
	if desc.SoftDelete() {
		sqlText += " AND IsDeleted = 0"
	}
	records, err := e.db.queryRecords(ctx, tx, sqlText, ps)
	if err != nil {
		return e.db.errMap.Map(err)
	}
	if len(records) == 0 {
		return ErrNotFound
	}
	stored := records[0].Int64("ClientId")
	if !p.InScope(stored) {
		return ErrNotFound
	}
	if supplied, ok := values["ClientId"]; ok {
		cid, valid := toInt64(supplied)
		if !valid || cid != stored {
			return &SecurityError{Msg: "client id does not match stored record"}
		}
	}
	return nil
}

// checkExists verifies a live row with the key exists.
func (e *Engine) checkExists(ctx context.Context, tx *Tx, desc *Descriptor, id int64) error {
	ps := NewParamSet(e.db.dialect)
	sqlText := "SELECT " + desc.KeyField + " FROM " + desc.TableName +
		" WHERE " + desc.KeyField + " = " + ps.Bind("id", id)
	if desc.SoftDelete() {
		sqlText += " AND IsDeleted = 0"
	}
	records, err := e.db.queryRecords(ctx, tx, sqlText, ps)
	if err != nil {
		return e.db.errMap.Map(err)
	}
	if len(records) == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *Engine) insertRow(ctx context.Context, tx *Tx, desc *Descriptor, values map[string]interface{}) (int64, error) {
	ps := NewParamSet(e.db.dialect)
	cols := sortedKeys(values)
	tokens := make([]string, len(cols))
	for i, col := range cols {
		tokens[i] = ps.Bind(col, values[col])
	}
	sqlText := "INSERT INTO " + desc.TableName +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(tokens, ", ") + ")"

	id, err := e.db.execInsert(ctx, tx, sqlText, ps)
	if err != nil {
		return 0, e.db.errMap.Map(err)
	}
	return id, nil
}

func (e *Engine) updateRow(ctx context.Context, tx *Tx, desc *Descriptor, p *Principal, id int64, values map[string]interface{}) error {
	if len(values) == 0 {
		return Validationf("update of %s carries no writable columns", desc.Name)
	}
	ps := NewParamSet(e.db.dialect)
	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = " + ps.Bind(col, values[col])
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(desc.TableName)
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" WHERE ")
	b.WriteString(desc.KeyField)
	b.WriteString(" = ")
	b.WriteString(ps.Bind("id", id))
	if desc.SoftDelete() {
		b.WriteString(" AND IsDeleted = 0")
	}

	affected, err := e.db.execStmt(ctx, tx, b.String(), ps)
	if err != nil {
		return e.db.errMap.Map(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// reconcileMultiSelect diffs the supplied value set against the stored one,
// hard-deleting removed values and inserting added ones.
func (e *Engine) reconcileMultiSelect(ctx context.Context, tx *Tx, ms *MultiSelectColumn, parentID int64, selected []string) error {
	existing, err := e.loadMultiSelect(ctx, tx, ms, parentID)
	if err != nil {
		return e.db.errMap.Map(err)
	}

	want := make(map[string]bool, len(selected))
	for _, v := range selected {
		want[v] = true
	}
	have := make(map[string]bool, len(existing))
	for _, v := range existing {
		have[v] = true
	}

	removed := make([]interface{}, 0)
	for _, v := range existing {
		if !want[v] {
			removed = append(removed, v)
		}
	}
	if len(removed) > 0 {
		ps := NewParamSet(e.db.dialect)
		idPh := ps.Bind("id", parentID)
		frag, n, err := ps.BindList(ms.ValueColumn, "removed", removed, ListOptions{Operator: "in"})
		if err != nil {
			return err
		}
		if n > 0 {
			sqlText := "DELETE FROM " + ms.Table +
				" WHERE " + ms.ForeignKey + " = " + idPh + " AND " + frag
			if _, err := e.db.execStmt(ctx, tx, sqlText, ps); err != nil {
				return e.db.errMap.Map(err)
			}
		}
	}

	for _, v := range selected {
		if have[v] {
			continue
		}
		ps := NewParamSet(e.db.dialect)
		sqlText := "INSERT INTO " + ms.Table +
			" (" + ms.ForeignKey + ", " + ms.ValueColumn + ") VALUES (" +
			ps.Bind("id", parentID) + ", " + ps.Bind("val", v) + ")"
		if _, err := e.db.execStmt(ctx, tx, sqlText, ps); err != nil {
			return e.db.errMap.Map(err)
		}
	}
	return nil
}

// extractRelationSelections pulls the virtual relation properties out of
// the value map, returning the parsed id set per relation name. Only
// properties the caller actually supplied reconcile; absent ones leave the
// stored associations untouched.
func extractRelationSelections(desc *Descriptor, values map[string]interface{}) (map[string][]int64, error) {
	out := make(map[string][]int64)
	for i := range desc.Relations {
		rel := &desc.Relations[i]
		if rel.Kind != OneToMany {
			continue
		}
		raw, ok := values[rel.Property]
		if !ok {
			continue
		}
		delete(values, rel.Property)

		var ids []int64
		if vs, isSlice := asSlice(raw); isSlice {
			for _, v := range vs {
				n, valid := toInt64(v)
				if !valid {
					return nil, Validationf("invalid id %v for %s", v, rel.Property)
				}
				if n > 0 {
					ids = append(ids, n)
				}
			}
		} else {
			parsed, err := ParseIDList(valueString(raw))
			if err != nil {
				return nil, Validationf("%s: %v", rel.Property, err)
			}
			ids = parsed
		}
		out[rel.Name] = ids
	}
	return out, nil
}

// extractMultiSelectValues pulls the virtual multi-select columns out of
// the value map as string sets, accepting both the CSV and array forms.
func extractMultiSelectValues(desc *Descriptor, values map[string]interface{}) (map[string][]string, error) {
	out := make(map[string][]string)
	for i := range desc.MultiSelect {
		ms := &desc.MultiSelect[i]
		raw, ok := values[ms.Column]
		if !ok {
			continue
		}
		delete(values, ms.Column)

		var parts []string
		if vs, isSlice := asSlice(raw); isSlice {
			for _, v := range vs {
				if s := strings.TrimSpace(valueString(v)); s != "" {
					parts = append(parts, s)
				}
			}
		} else {
			for _, s := range strings.Split(valueString(raw), ",") {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
		}
		out[ms.Column] = parts
	}
	return out, nil
}

// stripColumns removes the key, system, and configured read-only columns
// from a caller-supplied value map.
func stripColumns(desc *Descriptor, values map[string]interface{}) {
	delete(values, desc.KeyField)
	for col := range systemColumns {
		delete(values, col)
	}
	for _, col := range desc.ReadOnlyColumns {
		delete(values, col)
	}
	// Audit display names come from joins, never from storage.
	delete(values, "CreatedByUser")
	delete(values, "ModifiedByUser")
}

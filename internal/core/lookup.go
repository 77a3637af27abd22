package core

import "context"

// LookupRequest fetches key/display pairs for pickers and typeaheads.
// Term, when present, narrows by a contains match on the display field.
type LookupRequest struct {
	Term  string `json:"term"`
	Limit int    `json:"limit"`
}

// Lookup lists key/display pairs of live, in-scope rows ordered by the
// display field. The descriptor must declare a DisplayField.
func (e *Engine) Lookup(ctx context.Context, p *Principal, entity string, req LookupRequest) ([]Record, error) {
	ctx, err := requirePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	if desc.DisplayField == "" {
		return nil, Validationf("%s declares no display field", desc.Name)
	}

	ps := NewParamSet(e.db.dialect)
	stmt := NewSelect(desc.TableName + " Main")
	stmt.Column("Main."+desc.KeyField, "Main."+desc.DisplayField)
	stmt.Where(softDeletePredicate(desc, "Main"))
	tenant, err := tenantPredicate(ps, desc, p, "Main")
	if err != nil {
		return nil, err
	}
	stmt.Where(tenant)
	if desc.ActiveField != "" {
		stmt.Where("Main." + desc.ActiveField + " = 1")
	}
	if req.Term != "" {
		stmt.Where("Main." + desc.DisplayField + " LIKE " + ps.Bind("term", "%"+req.Term+"%"))
	}
	stmt.OrderBy("Main." + desc.DisplayField)
	if req.Limit > 0 {
		startPh := ps.Bind("start", 0)
		limitPh := ps.Bind("limit", req.Limit)
		stmt.Paginate(e.db.dialect.LimitClause(startPh, limitPh))
	}

	records, err := e.db.queryRecords(ctx, nil, stmt.SQL(), ps)
	if err != nil {
		return nil, e.db.errMap.Map(err)
	}
	return records, nil
}

package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/bizcore/bizcore/internal/util"
)

// ListRequest is one listing call. Include and Exclude are comma-separated
// key lists; Sort accepts "Field" or "Field DESC" expressions, comma-joined.
type ListRequest struct {
	Start       int      `json:"start"`
	Limit       int      `json:"limit"`
	Sort        string   `json:"sort"`
	Filter      []Filter `json:"filter"`
	GroupBy     string   `json:"groupBy"`
	Include     string   `json:"include"`
	Exclude     string   `json:"exclude"`
	ReturnCount bool     `json:"returnCount"`
}

// ListResult carries one page of records plus the unpaged total when the
// request asked for it.
type ListResult struct {
	Records     []Record `json:"records"`
	RecordCount int      `json:"recordCount"`
}

// listQuery is the assembled listing statement plus its parameter set,
// shared between List and the derived count execution.
type listQuery struct {
	stmt *SelectStatement
	ps   *ParamSet
}

// List runs one listing for the entity: source selection, tenant and
// soft-delete scoping, relation joins, filter translation, ordering, and
// pagination. When the request asks for a count alongside a bounded page,
// the parallel count statement derived from the same segments runs in the
// same call.
func (e *Engine) List(ctx context.Context, p *Principal, entity string, req ListRequest) (*ListResult, error) {
	ctx, err := requirePrincipal(ctx, p)
	if err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(entity)
	if err != nil {
		return nil, err
	}

	q, err := e.buildListQuery(desc, p, req)
	if err != nil {
		return nil, err
	}

	records, err := e.db.queryRecords(ctx, nil, q.stmt.SQL(), q.ps)
	if err != nil {
		return nil, e.db.errMap.Map(err)
	}

	result := &ListResult{Records: records, RecordCount: len(records)}
	if req.ReturnCount && req.Limit > 0 {
		// The count statement shares the parameter set; the paging
		// parameters are simply never referenced by its text.
		total, err := e.db.queryScalar(ctx, nil, q.stmt.CountSQL(), q.ps)
		if err != nil {
			return nil, e.db.errMap.Map(err)
		}
		n, _ := toInt64(total)
		result.RecordCount = int(n)
	}
	return result, nil
}

// buildListQuery assembles the listing statement from the descriptor and
// the request, binding every caller value as a parameter.
func (e *Engine) buildListQuery(desc *Descriptor, p *Principal, req ListRequest) (*listQuery, error) {
	ps := NewParamSet(e.db.dialect)
	source := desc.ListSource()
	viewSource := source != desc.TableName
	stmt := NewSelect(source + " Main")
	stmt.Column("Main.*")

	// A base-table source on a standard table resolves audit ids to names
	// through the user lookups; a list view projects those columns itself.
	if desc.StandardTable && !viewSource {
		for _, j := range e.auditJoins() {
			stmt.Join(j)
		}
		stmt.Column(e.auditColumns()...)
	}

	for i := range desc.Relations {
		rel := &desc.Relations[i]
		switch {
		case rel.Kind == OneToMany && rel.CountInList:
			stmt.Join(relationCountJoin(desc, rel))
			stmt.Column("COALESCE(" + rel.Name + "." + rel.Name + "Count, 0) AS " + rel.Name + "Count")
		case rel.Kind == OneToOne && len(rel.ListColumns) > 0:
			stmt.Join(oneToOneJoin(rel))
			for _, col := range rel.ListColumns {
				stmt.Column(rel.Name + "." + col)
			}
		}
	}

	stmt.Where(softDeletePredicate(desc, "Main"))
	tenant, err := tenantPredicate(ps, desc, p, "Main")
	if err != nil {
		return nil, err
	}
	stmt.Where(tenant)

	if err := e.applyKeyLists(stmt, ps, desc, req); err != nil {
		return nil, err
	}

	specs, err := TranslateFilters(req.Filter, TranslateOptions{
		AliasPrefix:       "Main.",
		ViewSource:        viewSource,
		UserDisplayColumn: e.userLookup.DisplayField,
	})
	if err != nil {
		return nil, err
	}
	filterFrag, err := CompilePredicates(ps, specs, false)
	if err != nil {
		return nil, err
	}
	stmt.Where(filterFrag)

	if req.GroupBy != "" {
		stmt.GroupBy(util.SanitizeSortExpr(req.GroupBy))
	}

	sortExpr := util.SanitizeSortExpr(req.Sort)
	if sortExpr == "" {
		sortExpr = util.SanitizeSortExpr(desc.DefaultSort)
	}
	stmt.OrderBy(sortExpr)

	// Pagination always rides on an ORDER BY; the default sort guarantees
	// one, which T-SQL OFFSET/FETCH requires.
	if req.Limit > 0 {
		startPh := ps.Bind("start", req.Start)
		limitPh := ps.Bind("limit", req.Limit)
		stmt.Paginate(e.db.dialect.LimitClause(startPh, limitPh))
	}

	return &listQuery{stmt: stmt, ps: ps}, nil
}

// applyKeyLists compiles the include/exclude key lists. An exclude list
// removes keys outright. An include list widens an active-only listing:
// with an active field configured the result is active rows plus the
// included keys regardless of their active state; without one the listing
// narrows to the included keys.
func (e *Engine) applyKeyLists(stmt *SelectStatement, ps *ParamSet, desc *Descriptor, req ListRequest) error {
	keyCol := "Main." + desc.KeyField

	include, err := ParseIDList(req.Include)
	if err != nil {
		return Validationf("include list: %v", err)
	}
	exclude, err := ParseIDList(req.Exclude)
	if err != nil {
		return Validationf("exclude list: %v", err)
	}

	if len(exclude) > 0 {
		frag, n, err := ps.BindList(keyCol, "exclude", int64Values(exclude), ListOptions{
			Operator: "not in",
			SQLType:  "bigint",
		})
		if err != nil {
			return err
		}
		if n > 0 {
			stmt.Where(frag)
		}
	}

	active := ""
	if desc.ActiveField != "" && (len(include) > 0 || len(exclude) > 0) {
		active = "Main." + desc.ActiveField + " = 1"
	}

	if len(include) > 0 {
		frag, n, err := ps.BindList(keyCol, "include", int64Values(include), ListOptions{
			Operator: "in",
			SQLType:  "bigint",
		})
		if err != nil {
			return err
		}
		if n > 0 {
			if active != "" {
				stmt.Where("(" + active + " OR " + frag + ")")
				return nil
			}
			stmt.Where(frag)
		}
		return nil
	}

	stmt.Where(active)
	return nil
}

// joinIDs renders ids back into the comma-separated wire form.
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

package core

import (
	"context"
	"sort"
)

// UserLookup names the user table joined twice into standard-table queries
// to resolve audit columns into display names.
type UserLookup struct {
	Table        string
	KeyField     string
	DisplayField string
}

// Engine executes list/load/save/delete operations for registered business
// objects. It holds no per-request state; the Principal and request
// parameters arrive with each call.
type Engine struct {
	db         *DB
	registry   *Registry
	userLookup UserLookup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithUserLookup overrides the audit-lookup user table convention.
func WithUserLookup(u UserLookup) EngineOption {
	return func(e *Engine) {
		e.userLookup = u
	}
}

// NewEngine creates an engine over db with an empty descriptor registry.
func NewEngine(db *DB, opts ...EngineOption) *Engine {
	e := &Engine{
		db:       db,
		registry: NewRegistry(),
		userLookup: UserLookup{
			Table:        "User",
			KeyField:     "UserId",
			DisplayField: "UserName",
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the engine's database handle.
func (e *Engine) DB() *DB { return e.db }

// Register adds a business-object descriptor to the engine.
func (e *Engine) Register(d *Descriptor) error {
	return e.registry.Register(d)
}

// Descriptor resolves an entity name (case-insensitive).
func (e *Engine) Descriptor(entity string) (*Descriptor, error) {
	return e.registry.Get(entity)
}

// Entities returns the registered entity names.
func (e *Engine) Entities() []string { return e.registry.Names() }

// softDeletePredicate returns the alias-qualified soft-delete test, or ""
// when the descriptor disables soft delete.
// requirePrincipal rejects calls without an authenticated caller and tags
// the context with the caller's request id for statement logging.
func requirePrincipal(ctx context.Context, p *Principal) (context.Context, error) {
	if p == nil {
		return ctx, Validationf("operation requires a principal")
	}
	return withRequestID(ctx, p.RequestID), nil
}

func softDeletePredicate(desc *Descriptor, alias string) string {
	if !desc.SoftDelete() {
		return ""
	}
	return alias + ".IsDeleted = 0"
}

// tenantPredicate binds the caller's tenant scope against the given alias.
// It is independent from the soft-delete predicate so report queries can
// scope a different alias. Returns "" when the descriptor is not
// tenant-scoped or the caller carries no scope id.
func tenantPredicate(ps *ParamSet, desc *Descriptor, p *Principal, alias string) (string, error) {
	if !desc.ClientBased || p == nil {
		return "", nil
	}
	scope := p.ScopeIDs()
	switch len(scope) {
	case 0:
		return "", nil
	case 1:
		return alias + ".ClientId = " + ps.Bind("clientId", scope[0]), nil
	default:
		frag, _, err := ps.BindList(alias+".ClientId", "clientId", int64Values(scope), ListOptions{
			Operator: "in",
			SQLType:  "bigint",
		})
		return frag, err
	}
}

// auditJoins returns the two self-referencing user lookups every standard
// table carries, resolving CreatedByUserId/ModifiedByUserId to names.
func (e *Engine) auditJoins() []string {
	u := e.userLookup
	return []string{
		"LEFT JOIN " + u.Table + " " + auditCreatedAlias + " ON " + auditCreatedAlias + "." + u.KeyField + " = Main.CreatedByUserId",
		"LEFT JOIN " + u.Table + " " + auditModifiedAlias + " ON " + auditModifiedAlias + "." + u.KeyField + " = Main.ModifiedByUserId",
	}
}

// auditColumns returns the projected audit display columns.
func (e *Engine) auditColumns() []string {
	u := e.userLookup
	return []string{
		auditCreatedAlias + "." + u.DisplayField + " AS CreatedByUser",
		auditModifiedAlias + "." + u.DisplayField + " AS ModifiedByUser",
	}
}

// sortedKeys returns map keys in sorted order for deterministic SQL.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

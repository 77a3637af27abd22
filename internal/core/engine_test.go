package core

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/bizcore/bizcore/internal/dialects"
)

// The integration tests drive the engine through the MySQL dialect against
// an in-memory SQLite database, which accepts the same positional
// placeholders, LIMIT syntax, and LastInsertId retrieval.

var testSchema = []string{
	`CREATE TABLE User (
		UserId INTEGER PRIMARY KEY AUTOINCREMENT,
		UserName TEXT NOT NULL
	)`,
	`CREATE TABLE Project (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		ClientId INTEGER NOT NULL,
		Name TEXT NOT NULL,
		StatusId INTEGER NOT NULL DEFAULT 1,
		IsActive INTEGER NOT NULL DEFAULT 1,
		IsDeleted INTEGER NOT NULL DEFAULT 0,
		CreatedOn TEXT,
		CreatedByUserId INTEGER,
		ModifiedOn TEXT,
		ModifiedByUserId INTEGER
	)`,
	`CREATE TABLE Tag (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE ProjectTag (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		ProjectId INTEGER NOT NULL,
		TagId INTEGER NOT NULL,
		IsDeleted INTEGER NOT NULL DEFAULT 0,
		CreatedOn TEXT,
		CreatedByUserId INTEGER,
		ModifiedOn TEXT,
		ModifiedByUserId INTEGER
	)`,
	`CREATE TABLE Task (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		ProjectId INTEGER NOT NULL,
		ClientId INTEGER NOT NULL,
		Title TEXT,
		IsDeleted INTEGER NOT NULL DEFAULT 0,
		CreatedOn TEXT,
		CreatedByUserId INTEGER,
		ModifiedOn TEXT,
		ModifiedByUserId INTEGER
	)`,
	`CREATE TABLE ProjectNote (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		ProjectId INTEGER NOT NULL,
		Body TEXT,
		IsDeleted INTEGER NOT NULL DEFAULT 0,
		CreatedOn TEXT,
		CreatedByUserId INTEGER,
		ModifiedOn TEXT,
		ModifiedByUserId INTEGER
	)`,
	`CREATE TABLE ProjectCategory (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		ProjectId INTEGER NOT NULL,
		Categories TEXT NOT NULL
	)`,
	`CREATE VIEW vwTaskList AS
		SELECT t.*, cu.UserName AS CreatedByUser, mu.UserName AS ModifiedByUser
		FROM Task t
		LEFT JOIN User cu ON cu.UserId = t.CreatedByUserId
		LEFT JOIN User mu ON mu.UserId = t.ModifiedByUserId`,
	`INSERT INTO User (UserName) VALUES ('alice'), ('bob')`,
	`INSERT INTO Tag (Name) VALUES ('alpha'), ('beta'), ('gamma'), ('delta')`,
}

func setupEngine(t *testing.T) *Engine {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// One connection keeps every statement on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range testSchema {
		_, err := sqlDB.Exec(ddl)
		require.NoError(t, err)
	}

	db := WrapDB(sqlDB, "sqlite", WithDialect(&dialects.MySQLDialect{}))
	t.Cleanup(func() { _ = db.Close() })

	e := NewEngine(db)
	require.NoError(t, e.Register(&Descriptor{
		Name:          "Project",
		TableName:     "Project",
		StandardTable: true,
		ClientBased:   true,
		ListView:      "Project",
		DisplayField:  "Name",
		ActiveField:   "IsActive",
		DefaultSort:   "Main.Id",
		Relations: []Relation{
			{Name: "Tag", Kind: OneToMany, Table: "ProjectTag", CountInList: true},
		},
		MultiSelect: []MultiSelectColumn{
			{Column: "Categories", Table: "ProjectCategory"},
		},
		RelatedFields: []RelatedField{{Table: "Task"}},
		Cascade:       []CascadeTable{{Table: "ProjectNote"}},
	}))
	require.NoError(t, e.Register(&Descriptor{
		Name:          "Task",
		TableName:     "Task",
		StandardTable: true,
		ClientBased:   true,
		DefaultSort:   "Main.Id",
	}))
	require.NoError(t, e.Register(&Descriptor{
		Name:              "Tag",
		TableName:         "Tag",
		DisableSoftDelete: true,
		DisplayField:      "Name",
	}))
	return e
}

func saveProject(t *testing.T, e *Engine, p *Principal, values map[string]interface{}) int64 {
	t.Helper()
	res, err := e.Save(context.Background(), p, "Project", SaveRequest{Values: values})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Positive(t, res.ID)
	return res.ID
}

// TestEngine_SaveAndLoad tests insert with audit and tenant defaults, then
// load with relation and multi-select folding.
func TestEngine_SaveAndLoad(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{
		"Name":       "Alpha",
		"StatusId":   2,
		"Tags":       "1,2",
		"Categories": "red,blue",
	})

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", rec.String("Name"))
	assert.Equal(t, int64(10), rec.Int64("ClientId"), "tenant defaults to the caller's")
	assert.Equal(t, int64(1), rec.Int64("CreatedByUserId"))
	assert.Equal(t, "alice", rec.String("CreatedByUser"), "audit id resolves through the user lookup")
	assert.Equal(t, "1,2", rec.String("Tags"))
	assert.Equal(t, "blue,red", rec.String("Categories"), "multi-select folds sorted by value")
}

// TestEngine_LoadSkipRelations tests suppression of relation expansion.
func TestEngine_LoadSkipRelations(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha", "Tags": "1"})

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id, SkipRelations: true})
	require.NoError(t, err)
	_, present := rec["Tags"]
	assert.False(t, present)
}

// TestEngine_LoadNotFound tests the missing, soft-deleted, and
// out-of-scope cases all reporting the same way.
func TestEngine_LoadNotFound(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	_, err := e.Load(ctx, p, "Project", LoadRequest{ID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})

	other := NewPrincipal(2, 99)
	_, err = e.Load(ctx, other, "Project", LoadRequest{ID: id})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Delete(ctx, p, "Project", DeleteRequest{ID: id})
	require.NoError(t, err)
	_, err = e.Load(ctx, p, "Project", LoadRequest{ID: id})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestEngine_SaveUpdate tests the update path with audit stamping.
func TestEngine_SaveUpdate(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})

	editor := NewPrincipal(2, 10)
	res, err := e.Save(ctx, editor, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Name": "Alpha v2"},
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, id, res.ID)

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "Alpha v2", rec.String("Name"))
	assert.Equal(t, int64(1), rec.Int64("CreatedByUserId"), "creator unchanged")
	assert.Equal(t, int64(2), rec.Int64("ModifiedByUserId"))
	assert.Equal(t, "bob", rec.String("ModifiedByUser"))
}

// TestEngine_SaveStripsSystemColumns tests that caller-supplied key,
// soft-delete, and audit values never reach storage.
func TestEngine_SaveStripsSystemColumns(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{
		"Name":            "Alpha",
		"IsDeleted":       1,
		"CreatedByUserId": 777,
	})

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Int64("IsDeleted"))
	assert.Equal(t, int64(1), rec.Int64("CreatedByUserId"))
}

// TestEngine_SaveTenantChecks tests the ownership verification performed
// before any write.
func TestEngine_SaveTenantChecks(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})

	// A caller from another tenant cannot see the row at all.
	other := NewPrincipal(2, 99)
	_, err := e.Save(ctx, other, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Name": "stolen"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// The owner cannot contradict the stored tenant id.
	var serr *SecurityError
	_, err = e.Save(ctx, p, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Name": "moved", "ClientId": 99},
	})
	require.ErrorAs(t, err, &serr)

	// Inserting into a tenant outside the caller's scope is rejected.
	_, err = e.Save(ctx, p, "Project", SaveRequest{
		Values: map[string]interface{}{"Name": "foreign", "ClientId": 99},
	})
	require.ErrorAs(t, err, &serr)

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", rec.String("Name"), "no write happened")
}

// TestEngine_RelationReconcile tests the diff of the selected tag set:
// removal soft-deletes, re-selection reactivates the same row, and new
// selections insert exactly once.
func TestEngine_RelationReconcile(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha", "Tags": "1,2"})

	_, err := e.Save(ctx, p, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Tags": "2,3"},
	})
	require.NoError(t, err)

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "2,3", rec.String("Tags"))

	// Re-selecting tag 1 must reuse its soft-deleted row.
	_, err = e.Save(ctx, p, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Tags": "1,3"},
	})
	require.NoError(t, err)

	rec, err = e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "1,3", rec.String("Tags"))

	var rows int
	require.NoError(t, e.DB().SQLDB().QueryRow(
		"SELECT COUNT(1) FROM ProjectTag WHERE ProjectId = ? AND TagId = 1", id,
	).Scan(&rows))
	assert.Equal(t, 1, rows, "reactivation must not duplicate the join row")
}

// TestEngine_RelationUntouchedWhenAbsent tests that a save without the
// virtual property leaves stored associations alone.
func TestEngine_RelationUntouchedWhenAbsent(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha", "Tags": "1,2"})

	_, err := e.Save(ctx, p, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Name": "renamed"},
	})
	require.NoError(t, err)

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "1,2", rec.String("Tags"))
}

// TestEngine_MultiSelectReconcile tests value-set diffing of a
// multi-select column.
func TestEngine_MultiSelectReconcile(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	id := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha", "Categories": "red,blue"})

	_, err := e.Save(ctx, p, "Project", SaveRequest{
		ID:     id,
		Values: map[string]interface{}{"Categories": []string{"blue", "green"}},
	})
	require.NoError(t, err)

	rec, err := e.Load(ctx, p, "Project", LoadRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "blue,green", rec.String("Categories"))

	var rows int
	require.NoError(t, e.DB().SQLDB().QueryRow(
		"SELECT COUNT(1) FROM ProjectCategory WHERE ProjectId = ?", id,
	).Scan(&rows))
	assert.Equal(t, 2, rows, "removed values are deleted physically")
}

// TestEngine_List tests tenant scoping, filtering, sorting, pagination,
// the relation count column, and the derived total.
func TestEngine_List(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)
	foreign := NewPrincipal(3, 99)

	saveProject(t, e, p, map[string]interface{}{"Name": "Alpha", "Tags": "1,2"})
	saveProject(t, e, p, map[string]interface{}{"Name": "Beta"})
	saveProject(t, e, p, map[string]interface{}{"Name": "Gamma"})
	saveProject(t, e, foreign, map[string]interface{}{"Name": "Other tenant"})

	res, err := e.List(ctx, p, "Project", ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3, "foreign tenant rows are invisible")
	assert.Equal(t, 3, res.RecordCount)
	assert.Equal(t, int64(2), res.Records[0].Int64("TagCount"))
	assert.Equal(t, int64(0), res.Records[1].Int64("TagCount"))
	assert.Equal(t, "alice", res.Records[0].String("CreatedByUser"))

	res, err = e.List(ctx, p, "Project", ListRequest{
		Filter: []Filter{{Field: "Name", Operator: "contains", Value: "a"}},
		Sort:   "Main.Name DESC",
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "Gamma", res.Records[0].String("Name"))
	assert.Equal(t, "Beta", res.Records[1].String("Name"))
	assert.Equal(t, "Alpha", res.Records[2].String("Name"))

	res, err = e.List(ctx, p, "Project", ListRequest{
		Start:       1,
		Limit:       1,
		Sort:        "Main.Name",
		ReturnCount: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Beta", res.Records[0].String("Name"))
	assert.Equal(t, 3, res.RecordCount, "total ignores the page bounds")
}

// TestEngine_ListSoftDeletedHidden tests that deleted rows leave listings.
func TestEngine_ListSoftDeletedHidden(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	keep := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})
	gone := saveProject(t, e, p, map[string]interface{}{"Name": "Beta"})

	_, err := e.Delete(ctx, p, "Project", DeleteRequest{ID: gone})
	require.NoError(t, err)

	res, err := e.List(ctx, p, "Project", ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, keep, res.Records[0].Int64("Id"))
}

// TestEngine_ListKeyLists tests include widening and exclude narrowing
// together with the active-only predicate.
func TestEngine_ListKeyLists(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	active := saveProject(t, e, p, map[string]interface{}{"Name": "Active"})
	inactive := saveProject(t, e, p, map[string]interface{}{"Name": "Dormant", "IsActive": 0})

	// Without key lists the active flag is not consulted.
	res, err := e.List(ctx, p, "Project", ListRequest{})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)

	// An include list keeps active rows plus the included keys.
	res, err = e.List(ctx, p, "Project", ListRequest{Include: joinIDs([]int64{inactive})})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)

	// An exclude list drops its keys and narrows to active rows.
	res, err = e.List(ctx, p, "Project", ListRequest{Exclude: joinIDs([]int64{active})})
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	res, err = e.List(ctx, p, "Project", ListRequest{Exclude: joinIDs([]int64{inactive})})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, active, res.Records[0].Int64("Id"))
}

// TestEngine_ListGroupedCount tests the derived-table count of a grouped
// listing.
func TestEngine_ListGroupedCount(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	saveProject(t, e, p, map[string]interface{}{"Name": "A", "StatusId": 1})
	saveProject(t, e, p, map[string]interface{}{"Name": "B", "StatusId": 1})
	saveProject(t, e, p, map[string]interface{}{"Name": "C", "StatusId": 2})

	res, err := e.List(ctx, p, "Project", ListRequest{
		GroupBy:     "Main.StatusId",
		Limit:       10,
		ReturnCount: true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.RecordCount, "total counts groups, not raw rows")
}

// TestEngine_ListViewSource tests listing from the conventional view,
// including filters on the view's own audit columns.
func TestEngine_ListViewSource(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	projectID := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})
	_, err := e.Save(ctx, p, "Task", SaveRequest{
		Values: map[string]interface{}{"ProjectId": projectID, "Title": "write spec"},
	})
	require.NoError(t, err)

	res, err := e.List(ctx, p, "Task", ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "write spec", res.Records[0].String("Title"))
	assert.Equal(t, "alice", res.Records[0].String("CreatedByUser"))

	res, err = e.List(ctx, p, "Task", ListRequest{
		Filter: []Filter{{Field: "CreatedByUser", Operator: "contains", Value: "ali"}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	res, err = e.List(ctx, p, "Task", ListRequest{
		Filter: []Filter{{Field: "CreatedByUser", Operator: "contains", Value: "bob"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

// TestEngine_DeleteGuard tests that live dependent rows block the delete
// with no mutation at all.
func TestEngine_DeleteGuard(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	projectID := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})
	taskRes, err := e.Save(ctx, p, "Task", SaveRequest{
		Values: map[string]interface{}{"ProjectId": projectID, "Title": "t"},
	})
	require.NoError(t, err)

	var rerr *ReferenceError
	_, err = e.Delete(ctx, p, "Project", DeleteRequest{ID: projectID})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Task", rerr.Table)
	assert.Equal(t, int64(1), rerr.Count)

	// The blocked delete left the project untouched.
	_, err = e.Load(ctx, p, "Project", LoadRequest{ID: projectID})
	require.NoError(t, err)

	// Removing the dependent row clears the guard.
	_, err = e.Delete(ctx, p, "Task", DeleteRequest{ID: taskRes.ID})
	require.NoError(t, err)
	_, err = e.Delete(ctx, p, "Project", DeleteRequest{ID: projectID})
	require.NoError(t, err)
}

// TestEngine_DeleteCascadeAndScope tests cascade soft-deletion and the
// tenant scope on the main row.
func TestEngine_DeleteCascadeAndScope(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	projectID := saveProject(t, e, p, map[string]interface{}{"Name": "Alpha"})
	_, err := e.DB().SQLDB().Exec(
		"INSERT INTO ProjectNote (ProjectId, Body) VALUES (?, 'n1'), (?, 'n2')",
		projectID, projectID,
	)
	require.NoError(t, err)

	other := NewPrincipal(2, 99)
	_, err = e.Delete(ctx, other, "Project", DeleteRequest{ID: projectID})
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := e.Delete(ctx, p, "Project", DeleteRequest{ID: projectID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)

	var liveNotes, totalNotes int
	require.NoError(t, e.DB().SQLDB().QueryRow(
		"SELECT COUNT(1) FROM ProjectNote WHERE ProjectId = ? AND IsDeleted = 0", projectID,
	).Scan(&liveNotes))
	require.NoError(t, e.DB().SQLDB().QueryRow(
		"SELECT COUNT(1) FROM ProjectNote WHERE ProjectId = ?", projectID,
	).Scan(&totalNotes))
	assert.Zero(t, liveNotes)
	assert.Equal(t, 2, totalNotes, "cascade soft-deletes, rows stay")

	_, err = e.Delete(ctx, p, "Project", DeleteRequest{ID: projectID})
	assert.ErrorIs(t, err, ErrNotFound, "a second delete finds nothing live")
}

// TestEngine_Lookup tests the key/display projection with term narrowing.
func TestEngine_Lookup(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	records, err := e.Lookup(ctx, p, "Tag", LookupRequest{})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "alpha", records[0].String("Name"), "ordered by display field")

	records, err = e.Lookup(ctx, p, "Tag", LookupRequest{Term: "ta"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "beta", records[0].String("Name"))
	assert.Equal(t, "delta", records[1].String("Name"))

	records, err = e.Lookup(ctx, p, "Tag", LookupRequest{Term: "eta"})
	require.NoError(t, err)
	require.Len(t, records, 1, "contains match, not fuzzy")
	assert.Equal(t, "beta", records[0].String("Name"))

	records, err = e.Lookup(ctx, p, "Tag", LookupRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = e.Lookup(ctx, p, "Project", LookupRequest{})
	require.NoError(t, err, "display field configured")

	_, err = e.Lookup(ctx, p, "Task", LookupRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

// TestEngine_UnknownEntity tests descriptor resolution failures.
func TestEngine_UnknownEntity(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)

	_, err := e.List(ctx, p, "Invoice", ListRequest{})
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = e.Load(ctx, p, "Invoice", LoadRequest{ID: 1})
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = e.Save(ctx, p, "Invoice", SaveRequest{Values: map[string]interface{}{"A": 1}})
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = e.Delete(ctx, p, "Invoice", DeleteRequest{ID: 1})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

// TestEngine_BadArguments tests the validation rejections.
func TestEngine_BadArguments(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	p := NewPrincipal(1, 10)
	var verr *ValidationError

	_, err := e.Load(ctx, p, "Project", LoadRequest{})
	require.ErrorAs(t, err, &verr)

	_, err = e.Delete(ctx, p, "Project", DeleteRequest{})
	require.ErrorAs(t, err, &verr)

	_, err = e.Save(ctx, p, "Project", SaveRequest{})
	require.ErrorAs(t, err, &verr)

	_, err = e.List(ctx, p, "Project", ListRequest{Include: "1,x"})
	require.ErrorAs(t, err, &verr)

	_, err = e.Save(ctx, p, "Project", SaveRequest{
		Values: map[string]interface{}{"Name": "n", "Tags": "1,zzz"},
	})
	require.ErrorAs(t, err, &verr)
}

// TestEngine_RequiresPrincipal tests that every operation rejects a nil
// caller before touching the database.
func TestEngine_RequiresPrincipal(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	var verr *ValidationError

	_, err := e.List(ctx, nil, "Project", ListRequest{})
	require.ErrorAs(t, err, &verr)

	_, err = e.Load(ctx, nil, "Project", LoadRequest{ID: 1})
	require.ErrorAs(t, err, &verr)

	_, err = e.Save(ctx, nil, "Project", SaveRequest{
		Values: map[string]interface{}{"Name": "n"},
	})
	require.ErrorAs(t, err, &verr)

	_, err = e.Delete(ctx, nil, "Project", DeleteRequest{ID: 1})
	require.ErrorAs(t, err, &verr)

	_, err = e.Lookup(ctx, nil, "Project", LookupRequest{})
	require.ErrorAs(t, err, &verr)
}

// Package bizcore provides a descriptor-driven data access engine for
// business objects: generic list, load, save, and delete operations that
// compile filter requests into parameterized SQL for SQL Server and MySQL,
// with soft-delete semantics, tenant scoping, relation expansion, audit
// columns, and prepared statement caching out of the box.
package bizcore

import (
	"github.com/bizcore/bizcore/internal/core"
)

type (
	// DB represents the database connection with caching and tracing capabilities.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Tx represents a database transaction.
	Tx = core.Tx

	// Engine executes the generic operations for registered business objects.
	Engine = core.Engine
	// EngineOption is a functional option for configuring an Engine.
	EngineOption = core.EngineOption
	// UserLookup names the table resolving audit user ids to display names.
	UserLookup = core.UserLookup

	// Descriptor is the static configuration of one business-object type.
	Descriptor = core.Descriptor
	// Relation describes an association declared by a descriptor.
	Relation = core.Relation
	// RelationKind distinguishes one-to-many and one-to-one associations.
	RelationKind = core.RelationKind
	// MultiSelectColumn declares a virtual column stored in a child table.
	MultiSelectColumn = core.MultiSelectColumn
	// MultiSelectFormat controls how multi-select values fold into a record.
	MultiSelectFormat = core.MultiSelectFormat
	// RelatedField is a delete guard over a dependent table.
	RelatedField = core.RelatedField
	// CascadeTable is a child table removed together with its parent.
	CascadeTable = core.CascadeTable

	// Principal is the authenticated caller an operation runs on behalf of.
	Principal = core.Principal
	// Record is one result row keyed by column name.
	Record = core.Record
	// Filter is one entry of a request's filter array.
	Filter = core.Filter

	// ListRequest parameterizes a listing call.
	ListRequest = core.ListRequest
	// ListResult carries one page of records plus the optional total.
	ListResult = core.ListResult
	// LoadRequest fetches one record by key.
	LoadRequest = core.LoadRequest
	// SaveRequest inserts or updates one record.
	SaveRequest = core.SaveRequest
	// SaveResult reports the persisted key.
	SaveResult = core.SaveResult
	// DeleteRequest removes one record by key.
	DeleteRequest = core.DeleteRequest
	// DeleteResult reports the affected row count.
	DeleteResult = core.DeleteResult
	// LookupRequest fetches key/display pairs for pickers.
	LookupRequest = core.LookupRequest

	// ValidationError reports a caller mistake caught before execution.
	ValidationError = core.ValidationError
	// SecurityError reports a tenant-ownership violation.
	SecurityError = core.SecurityError
	// ReferenceError reports a delete blocked by dependent rows.
	ReferenceError = core.ReferenceError
	// ErrorMapper translates driver errors into friendly messages.
	ErrorMapper = core.ErrorMapper
)

// Relation kinds.
const (
	OneToMany = core.OneToMany
	OneToOne  = core.OneToOne
)

// Multi-select formats.
const (
	MultiSelectCSV   = core.MultiSelectCSV
	MultiSelectArray = core.MultiSelectArray
)

// Predefined errors.
var (
	ErrNotFound      = core.ErrNotFound
	ErrUnknownEntity = core.ErrUnknownEntity
	ErrTxDone        = core.ErrTxDone
)

// Re-export core functions.
var (
	Open   = core.Open
	NewDB  = core.NewDB
	WrapDB = core.WrapDB

	NewEngine      = core.NewEngine
	NewPrincipal   = core.NewPrincipal
	NewErrorMapper = core.NewErrorMapper
	ParseIDList    = core.ParseIDList

	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer
	WithDialect           = core.WithDialect
	WithErrorMapper       = core.WithErrorMapper
	WithSensitiveFields   = core.WithSensitiveFields
	WithUserLookup        = core.WithUserLookup

	IsDuplicateKey = core.IsDuplicateKey
)

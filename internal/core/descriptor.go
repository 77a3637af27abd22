package core

import (
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
)

// RelationKind distinguishes the two association shapes a descriptor may declare.
type RelationKind int

const (
	// OneToMany associates the parent with a set of rows in a join table.
	OneToMany RelationKind = iota
	// OneToOne embeds columns of a single looked-up row into list results.
	OneToOne
)

// Relation describes an association between a business object and another table.
//
// For OneToMany the Table is a join table carrying the parent foreign key,
// the associated value column, a soft-delete flag, and audit columns. For
// OneToOne the Table is joined directly into list queries using JoinOn.
type Relation struct {
	Name  string
	Kind  RelationKind
	Table string
	// ForeignKey is the column in Table referencing the parent key.
	// Defaults to "<parent table>Id".
	ForeignKey string
	// ValueField is the OneToMany column holding the associated id.
	// Defaults to "<Name>Id".
	ValueField string
	// Where is an optional extra constraint ANDed into relation sub-selects.
	// It must reference columns of Table only.
	Where string
	// CountInList adds a "<Name>Count" aggregate column to list results.
	CountInList bool
	// Property is the virtual field carrying the comma-joined associated
	// ids on Load/Save. Defaults to the plural of Name.
	Property string
	// ListColumns are OneToOne columns projected into list results.
	ListColumns []string
	// JoinOn maps main-table columns to Table columns for OneToOne joins.
	JoinOn map[string]string
}

// MultiSelectFormat controls how multi-select values are folded into a
// loaded record.
type MultiSelectFormat int

const (
	// MultiSelectCSV folds distinct values into one comma-joined string.
	MultiSelectCSV MultiSelectFormat = iota
	// MultiSelectArray folds distinct values into a string slice.
	MultiSelectArray
)

// MultiSelectColumn declares a virtual column whose values live in a child
// table, one row per selected value.
type MultiSelectColumn struct {
	Column string
	Table  string
	// ForeignKey is the child column referencing the parent key.
	// Defaults to "<parent table>Id".
	ForeignKey string
	// ValueColumn holds the selected value. Defaults to Column.
	ValueColumn string
	Format      MultiSelectFormat
}

// RelatedField is a delete guard: a sibling table that must have zero live
// references to the row being deleted.
type RelatedField struct {
	Table string
	// ForeignKey is the guard table's column referencing the parent key.
	// Defaults to "<parent table>Id".
	ForeignKey string
}

// CascadeTable is a child table whose rows are removed together with the
// parent, ahead of the parent's own delete.
type CascadeTable struct {
	Table      string
	ForeignKey string
	// HardDelete removes rows physically instead of soft-deleting them.
	HardDelete bool
}

// Descriptor is the static configuration of one business-object type.
// It is built once at registration and immutable afterwards.
type Descriptor struct {
	Name      string
	TableName string
	// KeyField is the identity column. Defaults to "Id".
	KeyField string
	// StandardTable enables the list-view convention, audit columns, and
	// audit-lookup joins.
	StandardTable bool
	// ClientBased scopes every operation to the caller's tenant.
	ClientBased bool
	// SoftDelete marks rows IsDeleted=1 instead of removing them.
	// Defaults to true; set DisableSoftDelete to turn it off.
	DisableSoftDelete bool
	// ListView overrides the list source. Defaults to "vw<Table>List" for
	// standard tables, the base table otherwise.
	ListView string
	// DefaultSort is the ORDER BY applied when a list request has no sort.
	// Defaults to the key field.
	DefaultSort string
	// DisplayField is the human-readable column used by Lookup.
	DisplayField string
	// ActiveField, when set, restricts include/exclude listings to rows
	// where the field is 1.
	ActiveField string
	// ReadOnlyColumns are stripped from caller-supplied values on Save.
	ReadOnlyColumns []string
	Relations       []Relation
	MultiSelect     []MultiSelectColumn
	RelatedFields   []RelatedField
	Cascade         []CascadeTable
}

// SoftDelete reports whether soft-delete semantics apply.
func (d *Descriptor) SoftDelete() bool { return !d.DisableSoftDelete }

// ListSource returns the FROM source for list queries.
func (d *Descriptor) ListSource() string {
	if d.ListView != "" {
		return d.ListView
	}
	if d.StandardTable {
		return "vw" + d.TableName + "List"
	}
	return d.TableName
}

// relation finds a declared relation by name, nil when absent.
func (d *Descriptor) relation(name string) *Relation {
	for i := range d.Relations {
		if strings.EqualFold(d.Relations[i].Name, name) {
			return &d.Relations[i]
		}
	}
	return nil
}

// normalize fills descriptor defaults in place. Called once at registration.
func (d *Descriptor) normalize() error {
	if d.TableName == "" {
		return Validationf("descriptor %q has no table name", d.Name)
	}
	if d.Name == "" {
		d.Name = d.TableName
	}
	if d.KeyField == "" {
		d.KeyField = "Id"
	}
	if d.DefaultSort == "" {
		d.DefaultSort = d.KeyField
	}
	parentFK := d.TableName + "Id"
	for i := range d.Relations {
		r := &d.Relations[i]
		if r.ForeignKey == "" {
			r.ForeignKey = parentFK
		}
		if r.ValueField == "" && r.Kind == OneToMany {
			r.ValueField = r.Name + "Id"
		}
		if r.Property == "" {
			r.Property = inflection.Plural(r.Name)
		}
		if r.Table == "" {
			return Validationf("relation %q of %q has no table", r.Name, d.Name)
		}
	}
	for i := range d.MultiSelect {
		ms := &d.MultiSelect[i]
		if ms.ForeignKey == "" {
			ms.ForeignKey = parentFK
		}
		if ms.ValueColumn == "" {
			ms.ValueColumn = ms.Column
		}
		if ms.Table == "" {
			return Validationf("multi-select column %q of %q has no table", ms.Column, d.Name)
		}
	}
	for i := range d.RelatedFields {
		if d.RelatedFields[i].ForeignKey == "" {
			d.RelatedFields[i].ForeignKey = parentFK
		}
	}
	for i := range d.Cascade {
		if d.Cascade[i].ForeignKey == "" {
			d.Cascade[i].ForeignKey = parentFK
		}
	}
	return nil
}

// Registry maps entity names (case-insensitive) to descriptors.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Descriptor
}

// NewRegistry creates an empty descriptor registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Descriptor)}
}

// Register normalizes and stores a descriptor. Registering the same name
// twice replaces the earlier entry.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.normalize(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.ToLower(d.Name)] = d
	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[strings.ToLower(name)]
	if !ok {
		return nil, WrapError(ErrUnknownEntity, name)
	}
	return d, nil
}

// Names returns the registered entity names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for _, d := range r.types {
		names = append(names, d.Name)
	}
	return names
}

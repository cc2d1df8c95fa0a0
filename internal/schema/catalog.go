// Package schema declares the collections of the emergency store and the
// secondary indexes each of them must carry.
package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Table names.
const (
	Users            = "users"
	DistressMessages = "distress_messages"
	DeviceNodes      = "device_nodes"
	MessageRoutes    = "message_routes"
)

// EmergencyResponseIndex serves "critical pending emergencies near me": one
// compound index covering the bounding box and both equality predicates, so the
// planner never has to intersect several single-column indexes under load.
const EmergencyResponseIndex = "emergency_response_index"

// Access methods.
const (
	BTree = "btree"
	GIN   = "gin"
)

// Index is the definition of one secondary index.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Method  string
}

// Equal reports whether two definitions describe the same physical index.
func (ix Index) Equal(other Index) bool {
	return ix.Name == other.Name &&
		ix.Table == other.Table &&
		ix.Unique == other.Unique &&
		strings.EqualFold(ix.method(), other.method()) &&
		slices.Equal(ix.Columns, other.Columns)
}

// DDL renders an idempotent CREATE INDEX statement.
func (ix Index) DDL() string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX IF NOT EXISTS %s ON %s USING %s (%s)",
		quoteIdent(ix.Name), quoteIdent(ix.Table), ix.method(), quoteIdents(ix.Columns))
	return b.String()
}

// String formats the definition for logs and error messages.
func (ix Index) String() string {
	u := ""
	if ix.Unique {
		u = " unique"
	}
	return fmt.Sprintf("%s on %s using %s (%s)%s", ix.Name, ix.Table, ix.method(), strings.Join(ix.Columns, ", "), u)
}

func (ix Index) method() string {
	if ix.Method == "" {
		return BTree
	}
	return ix.Method
}

// Collection is a table together with its required secondary indexes.
type Collection struct {
	Name    string
	Indexes []Index
}

// Catalog returns the collections in provisioning order.
func Catalog() []Collection {
	return []Collection{
		{
			Name: Users,
			Indexes: []Index{
				unique(Users, "email"),
				unique(Users, "device_id"),
				named(Users, "location", "latitude", "longitude"),
				single(Users, "is_active"),
				single(Users, "last_seen"),
			},
		},
		{
			Name: DistressMessages,
			Indexes: []Index{
				named(DistressMessages, "location", "latitude", "longitude"),
				single(DistressMessages, "urgency_level"),
				single(DistressMessages, "message_type"),
				single(DistressMessages, "status"),
				single(DistressMessages, "created_at"),
				single(DistressMessages, "expires_at"),
				single(DistressMessages, "sender_id"),
				{
					Name:    EmergencyResponseIndex,
					Table:   DistressMessages,
					Columns: []string{"latitude", "longitude", "urgency_level", "status"},
					Method:  BTree,
				},
			},
		},
		{
			Name: DeviceNodes,
			Indexes: []Index{
				unique(DeviceNodes, "device_id"),
				single(DeviceNodes, "user_id"),
				single(DeviceNodes, "is_online"),
				single(DeviceNodes, "last_seen"),
				named(DeviceNodes, "location", "latitude", "longitude"),
				{
					Name:    indexName(DeviceNodes, "connected_peers"),
					Table:   DeviceNodes,
					Columns: []string{"connected_peers"},
					Method:  GIN,
				},
			},
		},
		{
			Name: MessageRoutes,
			Indexes: []Index{
				single(MessageRoutes, "message_id"),
				single(MessageRoutes, "from_device_id"),
				single(MessageRoutes, "to_device_id"),
				single(MessageRoutes, "timestamp"),
				single(MessageRoutes, "hop_count"),
			},
		},
	}
}

// Lookup returns the catalog collection with the given name.
func Lookup(name string) (Collection, bool) {
	for _, c := range Catalog() {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

func single(table, col string) Index {
	return Index{Name: indexName(table, col), Table: table, Columns: []string{col}, Method: BTree}
}

func unique(table, col string) Index {
	ix := single(table, col)
	ix.Unique = true
	return ix
}

func named(table, suffix string, cols ...string) Index {
	return Index{Name: indexName(table, suffix), Table: table, Columns: cols, Method: BTree}
}

func indexName(table, suffix string) string { return "idx_" + table + "_" + suffix }

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIdents(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quoteIdent(c)
	}
	return strings.Join(q, ", ")
}

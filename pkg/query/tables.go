package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/younsl/bucketpulse/internal/models"
)

// ErrTableResolution matches every TableResolutionError
var ErrTableResolution = errors.New("table resolution failed")

// TableResolutionError reports that no valid table reference could be produced
type TableResolutionError struct {
	Bucket string
	Kind   string // "inventory" or "journal"
	Reason string
}

func (e *TableResolutionError) Error() string {
	return fmt.Sprintf("resolve %s table for bucket %s: %s", e.Kind, e.Bucket, e.Reason)
}

// Is lets errors.Is match ErrTableResolution
func (e *TableResolutionError) Is(target error) bool {
	return target == ErrTableResolution
}

// TableRef identifies an Athena table
type TableRef struct {
	Database           string
	Table              string
	FullyQualifiedName string // rendered verbatim when set
}

// Expr renders the table reference for a FROM clause
func (r TableRef) Expr() string {
	if r.FullyQualifiedName != "" {
		return r.FullyQualifiedName
	}
	if r.Database == "" {
		return quoteIdent(r.Table)
	}
	return quoteIdent(r.Database) + "." + quoteIdent(r.Table)
}

// Tables holds the resolved table pair for one bucket
type Tables struct {
	Inventory TableRef
	Journal   TableRef
}

// Resolver maps a bucket name to its inventory and journal tables
type Resolver interface {
	InventoryTable(bucketName string) (TableRef, error)
	JournalTable(bucketName string) (TableRef, error)
}

// ConventionResolver derives table names from the bucket name: inv_<bucket> and
// jn_<bucket>, with '-' and '.' replaced by '_'
type ConventionResolver struct {
	Database string
}

// InventoryTable returns the conventional inventory table for a bucket
func (c ConventionResolver) InventoryTable(bucketName string) (TableRef, error) {
	return c.table("inventory", "inv_", bucketName)
}

// JournalTable returns the conventional journal table for a bucket
func (c ConventionResolver) JournalTable(bucketName string) (TableRef, error) {
	return c.table("journal", "jn_", bucketName)
}

func (c ConventionResolver) table(kind, prefix, bucketName string) (TableRef, error) {
	if strings.TrimSpace(bucketName) == "" {
		return TableRef{}, &TableResolutionError{Bucket: bucketName, Kind: kind, Reason: "empty bucket name"}
	}
	name := prefix + strings.NewReplacer("-", "_", ".", "_").Replace(bucketName)
	if !validIdent(name) {
		return TableRef{}, &TableResolutionError{Bucket: bucketName, Kind: kind, Reason: fmt.Sprintf("invalid table name %q", name)}
	}
	return TableRef{Database: c.Database, Table: name}, nil
}

// ResolveTables applies the bucket's table overrides, falling back to the
// resolver for any override that is missing or invalid. bucket may be nil.
func ResolveTables(bucket *models.BucketInfo, bucketName string, fallback Resolver) (Tables, error) {
	var inventoryOverride, journalOverride string
	if bucket != nil {
		inventoryOverride = bucket.InventoryTableName
		journalOverride = bucket.JournalTableName
	}

	inventory, ok := ParseTableName(inventoryOverride)
	if !ok {
		ref, err := fallback.InventoryTable(bucketName)
		if err != nil {
			return Tables{}, err
		}
		inventory = ref
	}

	journal, ok := ParseTableName(journalOverride)
	if !ok {
		ref, err := fallback.JournalTable(bucketName)
		if err != nil {
			return Tables{}, err
		}
		journal = ref
	}

	return Tables{Inventory: inventory, Journal: journal}, nil
}

// ParseTableName parses an override of the form "table" or "database.table".
// Everything before the last dot is the database. ok is false when the name is
// empty or not a usable identifier.
func ParseTableName(name string) (TableRef, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TableRef{}, false
	}
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		if !validIdent(name) {
			return TableRef{}, false
		}
		return TableRef{Table: name, FullyQualifiedName: quoteIdent(name)}, true
	}
	db, tbl := name[:idx], name[idx+1:]
	if !validIdent(db) || !validIdent(tbl) {
		return TableRef{}, false
	}
	return TableRef{Database: db, Table: tbl, FullyQualifiedName: quoteIdent(db) + "." + quoteIdent(tbl)}, true
}

func quoteIdent(s string) string {
	return `"` + s + `"`
}

func validIdent(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	return !strings.ContainsAny(s, "\"`;'\n\r\t ")
}

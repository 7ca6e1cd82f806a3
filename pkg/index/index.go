// Package index persists parsed declarations in a badgerhold store so they
// can be queried by name, file or kind across many source units
package index

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"cppdecl/pkg/ast"
	cpplog "cppdecl/pkg/logger"
)

// recordNamespace seeds the deterministic record IDs
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cppdecl/index/record"))

// Record is one stored declaration
type Record struct {
	ID         string `badgerhold:"key"`
	File       string `badgerhold:"index"`
	Name       string `badgerhold:"index"`
	FullName   string `badgerhold:"index"`
	Namespace  string
	Kind       string `badgerhold:"index"`
	Signature  string
	Line       int
	Column     int
	Guarded    bool
	Brief      string
	Lines      int
	Complexity int
}

// String renders the record as file:line: kind name
func (r Record) String() string {
	return fmt.Sprintf("%s:%d: %s %s", r.File, r.Line, r.Kind, r.FullName)
}

// Query filters records; empty fields match everything
type Query struct {
	Name string // full name, or unqualified name when it has no "::"
	File string
	Kind string
}

// Index is a persisted declaration store
type Index struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// Open opens or creates the index at path. With reset the existing store
// is deleted first.
func Open(path string, reset bool, logger arbor.ILogger) (*Index, error) {
	if logger == nil {
		logger = cpplog.Discard()
	}
	if reset {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("Deleting existing index (reset=true)")
			if err := os.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("failed to reset index: %w", err)
			}
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Index opened")

	return &Index{store: store, logger: logger, path: path}, nil
}

// Close closes the underlying store
func (ix *Index) Close() error {
	if ix.store != nil {
		return ix.store.Close()
	}
	return nil
}

// RecordID derives the stable ID of a declaration record
func RecordID(file string, d *ast.Declaration) string {
	key := strings.Join([]string{file, d.FullName, d.Kind.String(), strconv.Itoa(d.Range.Start.Line),
		strconv.Itoa(d.Range.Start.Column)}, "\x00")
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// NewRecord converts a declaration of the given file
func NewRecord(file string, d *ast.Declaration) Record {
	r := Record{
		ID:        RecordID(file, d),
		File:      file,
		Name:      d.Name,
		FullName:  d.FullName,
		Kind:      d.Kind.String(),
		Signature: d.Signature,
		Line:      d.Range.Start.Line,
		Column:    d.Range.Start.Column,
		Guarded:   d.Guarded,
		Brief:     d.Brief,
	}
	if d.Owner != nil {
		r.Namespace = strings.Join(d.Owner.Path(), "::")
	}
	if d.Metrics != nil {
		r.Lines = d.Metrics.Lines
		r.Complexity = d.Metrics.Complexity
	}
	return r
}

// SaveTree replaces everything stored for the tree's file with its
// declarations, in one transaction. It returns the number of records written.
func (ix *Index) SaveTree(tree *ast.Tree) (int, error) {
	file := tree.Filename
	err := ix.store.Badger().Update(func(tx *badger.Txn) error {
		if err := ix.store.TxDeleteMatching(tx, &Record{}, badgerhold.Where("File").Eq(file)); err != nil {
			return err
		}
		for _, d := range tree.Declarations {
			rec := NewRecord(file, d)
			if err := ix.store.TxUpsert(tx, rec.ID, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", file, err)
	}
	ix.logger.Debug().Str("file", file).Int("declarations", len(tree.Declarations)).Msg("File indexed")
	return len(tree.Declarations), nil
}

// Get loads one record by ID
func (ix *Index) Get(id string) (*Record, error) {
	var rec Record
	if err := ix.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// FindByName returns records whose full name equals name or, for an
// unqualified name, whose name equals it
func (ix *Index) FindByName(name string) ([]Record, error) {
	return ix.Find(Query{Name: name})
}

// FindByFile returns the records of one source file
func (ix *Index) FindByFile(file string) ([]Record, error) {
	return ix.Find(Query{File: file})
}

// FindByKind returns all records of one declaration kind
func (ix *Index) FindByKind(kind ast.DeclKind) ([]Record, error) {
	return ix.Find(Query{Kind: kind.String()})
}

// Find returns the records matching every non-empty field of q, ordered by
// file and position
func (ix *Index) Find(q Query) ([]Record, error) {
	name := strings.TrimPrefix(q.Name, "::")
	field := "FullName"
	if name != "" && !strings.Contains(name, "::") {
		field = "Name"
	}

	var query *badgerhold.Query
	where := func(f, value string) {
		if value == "" {
			return
		}
		if query == nil {
			query = badgerhold.Where(f).Eq(value)
		} else {
			query = query.And(f).Eq(value)
		}
	}
	where(field, name)
	where("File", q.File)
	where("Kind", q.Kind)

	var records []Record
	if err := ix.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return records, nil
}

// DeleteFile removes the records of one source file
func (ix *Index) DeleteFile(file string) error {
	if err := ix.store.DeleteMatching(&Record{}, badgerhold.Where("File").Eq(file)); err != nil {
		return fmt.Errorf("failed to delete records of %s: %w", file, err)
	}
	ix.logger.Debug().Str("file", file).Msg("File removed from index")
	return nil
}

// Count returns the number of stored records
func (ix *Index) Count() (uint64, error) {
	n, err := ix.store.Count(&Record{}, nil)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

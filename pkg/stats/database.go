package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// Table names used inside a Database.
const (
	CasesTable  = "cases"
	DeathsTable = "deaths"
)

// Database is the on-disk cache of downloaded table payloads. It stores raw
// inputs only; the aggregated Model is always rebuilt from it.
type Database struct {
	Files      map[string]*File
	Downloaded time.Time
}

func NewDatabase() *Database {
	return &Database{Files: make(map[string]*File)}
}

// LoadIfExists reads a cached database. found is false when dbFile does not
// exist.
func LoadIfExists(dbFile string) (db *Database, found bool, err error) {
	data, err := os.ReadFile(dbFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", dbFile, err)
	}

	db = NewDatabase()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", dbFile, err)
	}
	return db, true, nil
}

// Put stores f under name.
func (db *Database) Put(name string, f *File) {
	if db.Files == nil {
		db.Files = make(map[string]*File)
	}
	db.Files[name] = f
}

// Table parses the payload stored under name.
func (db *Database) Table(name string) (*Table, error) {
	f, ok := db.Files[name]
	if !ok {
		return nil, fmt.Errorf("table %q not cached", name)
	}
	return ReadTable(f)
}

// Save writes the database as indented JSON.
func (db *Database) Save(dbFile string) error {
	js, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	if err := os.WriteFile(dbFile, js, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dbFile, err)
	}
	return nil
}

// Info summarizes what the database holds.
type Info struct {
	Tables      []string
	ContentSize int
	Downloaded  time.Time
}

func (db *Database) Info() Info {
	info := Info{Downloaded: db.Downloaded}
	for name, f := range db.Files {
		info.Tables = append(info.Tables, name)
		info.ContentSize += len(f.ContentBase64)
	}
	sort.Strings(info.Tables)
	return info
}

// Model parses both cached tables, checks they line up and builds the model.
func (db *Database) Model(opts BuildOptions) (*Model, error) {
	cases, err := db.Table(CasesTable)
	if err != nil {
		return nil, err
	}
	deaths, err := db.Table(DeathsTable)
	if err != nil {
		return nil, err
	}
	if err := CheckAligned(cases, deaths); err != nil {
		return nil, err
	}
	return Build(cases, deaths, opts)
}

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-memdb"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

const (
	entitiesTable = "entities"
	settingsTable = "settings"

	idIndex   = "id"
	kindIndex = "kind"
)

// entityRow is the memdb representation of a mirrored entity.
type entityRow struct {
	ID     string
	Kind   string
	Record interfaces.EntityRecord
}

func entityID(kind interfaces.EntityKind, address common.Address) string {
	return string(kind) + "/" + strings.ToLower(address.Hex())
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			entitiesTable: {
				Name: entitiesTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					kindIndex: {
						Name:    kindIndex,
						Indexer: &memdb.StringFieldIndex{Field: "Kind"},
					},
				},
			},
			settingsTable: {
				Name: settingsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// MemoryStore implements Store on top of go-memdb. Contents are lost on restart.
type MemoryStore struct {
	db *memdb.MemDB
}

func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

func (s *MemoryStore) SaveEntity(ctx context.Context, kind interfaces.EntityKind, record *interfaces.EntityRecord) error {
	if err := checkRecord(kind, record); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	id := entityID(kind, record.Address)
	existing, err := txn.First(entitiesTable, idIndex, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s %s", interfaces.ErrEntityExists, kind, record.Address.Hex())
	}

	row := &entityRow{ID: id, Kind: string(kind), Record: *record}
	row.Record.Kind = kind
	if err := txn.Insert(entitiesTable, row); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) GetEntity(ctx context.Context, kind interfaces.EntityKind, address common.Address) (*interfaces.EntityRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	raw, err := txn.First(entitiesTable, idIndex, entityID(kind, address))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s %s", interfaces.ErrEntityNotFound, kind, address.Hex())
	}

	record := raw.(*entityRow).Record
	return &record, nil
}

func (s *MemoryStore) ListEntities(ctx context.Context, kind interfaces.EntityKind) ([]*interfaces.EntityRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	it, err := txn.Get(entitiesTable, kindIndex, string(kind))
	if err != nil {
		return nil, err
	}

	records := []*interfaces.EntityRecord{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		record := obj.(*entityRow).Record
		records = append(records, &record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].Address.Hex() < records[j].Address.Hex()
	})
	return records, nil
}

func (s *MemoryStore) GetSetting(ctx context.Context, key string) (*interfaces.Setting, error) {
	raw, err := s.db.Txn(false).First(settingsTable, idIndex, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSettingNotFound, key)
	}

	setting := *raw.(*interfaces.Setting)
	return &setting, nil
}

func (s *MemoryStore) ListSettings(ctx context.Context) ([]*interfaces.Setting, error) {
	// an empty prefix matches every key, in key order
	it, err := s.db.Txn(false).Get(settingsTable, idIndex+"_prefix", "")
	if err != nil {
		return nil, err
	}

	settings := []*interfaces.Setting{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		setting := *obj.(*interfaces.Setting)
		settings = append(settings, &setting)
	}
	return settings, nil
}

func (s *MemoryStore) PutSetting(ctx context.Context, setting *interfaces.Setting) error {
	if setting.UpdatedAt == 0 {
		setting.UpdatedAt = nowMillis()
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	stored := *setting
	if err := txn.Insert(settingsTable, &stored); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", setting.Key, err)
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) DeleteSetting(ctx context.Context, key string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(settingsTable, idIndex, key)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: %s", interfaces.ErrSettingNotFound, key)
	}
	if err := txn.Delete(settingsTable, raw); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil)

package database

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, store Store) {
	ctx := context.Background()
	pharmacy := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	second := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	operator := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	t.Run("entities", func(t *testing.T) {
		records, err := store.ListEntities(ctx, interfaces.PharmacyKind)
		require.NoError(t, err)
		assert.Empty(t, records)

		later := &interfaces.EntityRecord{
			Address:         second,
			Name:            "Second Pharmacy",
			PhysicalAddress: "2 Main St",
			ContentHash:     "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq",
			CreatedBy:       operator,
			Timestamp:       2000,
		}
		first := &interfaces.EntityRecord{
			Address:         pharmacy,
			Name:            "Corner Pharmacy",
			PhysicalAddress: "1 Main St",
			ContentHash:     "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku",
			CreatedBy:       operator,
			Timestamp:       1000,
		}
		require.NoError(t, store.SaveEntity(ctx, interfaces.PharmacyKind, later))
		require.NoError(t, store.SaveEntity(ctx, interfaces.PharmacyKind, first))

		err = store.SaveEntity(ctx, interfaces.PharmacyKind, first)
		assert.ErrorIs(t, err, interfaces.ErrEntityExists)

		// the same address may still be mirrored under another collection
		require.NoError(t, store.SaveEntity(ctx, interfaces.DistributorKind, first))

		got, err := store.GetEntity(ctx, interfaces.PharmacyKind, pharmacy)
		require.NoError(t, err)
		assert.Equal(t, interfaces.PharmacyKind, got.Kind)
		assert.Equal(t, pharmacy, got.Address)
		assert.Equal(t, "Corner Pharmacy", got.Name)
		assert.Equal(t, "1 Main St", got.PhysicalAddress)
		assert.Equal(t, first.ContentHash, got.ContentHash)
		assert.Equal(t, operator, got.CreatedBy)
		assert.Equal(t, int64(1000), got.Timestamp)

		records, err = store.ListEntities(ctx, interfaces.PharmacyKind)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, pharmacy, records[0].Address)
		assert.Equal(t, second, records[1].Address)

		records, err = store.ListEntities(ctx, interfaces.ManufacturerKind)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = store.GetEntity(ctx, interfaces.ManufacturerKind, pharmacy)
		assert.ErrorIs(t, err, interfaces.ErrEntityNotFound)

		_, err = store.ListEntities(ctx, interfaces.EntityKind("hospital"))
		assert.ErrorIs(t, err, interfaces.ErrUnknownEntityKind)
		assert.ErrorIs(t, store.SaveEntity(ctx, interfaces.EntityKind("hospital"), first), interfaces.ErrUnknownEntityKind)
	})

	t.Run("settings", func(t *testing.T) {
		settings, err := store.ListSettings(ctx)
		require.NoError(t, err)
		assert.Empty(t, settings)

		network := &interfaces.Setting{Key: "network", Value: "sepolia"}
		require.NoError(t, store.PutSetting(ctx, network))
		assert.NotZero(t, network.UpdatedAt)
		require.NoError(t, store.PutSetting(ctx, &interfaces.Setting{Key: "contract", Value: "0x01", UpdatedAt: 5}))

		got, err := store.GetSetting(ctx, "network")
		require.NoError(t, err)
		assert.Equal(t, "sepolia", got.Value)

		require.NoError(t, store.PutSetting(ctx, &interfaces.Setting{Key: "network", Value: "mainnet", UpdatedAt: 7}))
		got, err = store.GetSetting(ctx, "network")
		require.NoError(t, err)
		assert.Equal(t, "mainnet", got.Value)
		assert.Equal(t, int64(7), got.UpdatedAt)

		settings, err = store.ListSettings(ctx)
		require.NoError(t, err)
		require.Len(t, settings, 2)
		assert.Equal(t, "contract", settings[0].Key)
		assert.Equal(t, "network", settings[1].Key)

		require.NoError(t, store.DeleteSetting(ctx, "network"))
		_, err = store.GetSetting(ctx, "network")
		assert.ErrorIs(t, err, interfaces.ErrSettingNotFound)
		assert.ErrorIs(t, store.DeleteSetting(ctx, "network"), interfaces.ErrSettingNotFound)
	})

	assert.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	runStoreTests(t, store)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)

	address := common.HexToAddress("0x01")
	record := &interfaces.EntityRecord{Address: address, Name: "Original"}
	require.NoError(t, store.SaveEntity(ctx, interfaces.ManufacturerKind, record))
	record.Name = "Mutated"

	got, err := store.GetEntity(ctx, interfaces.ManufacturerKind, address)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Name)
	got.Name = "Mutated again"

	again, err := store.GetEntity(ctx, interfaces.ManufacturerKind, address)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, "memory://", discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(ctx, "mysql://localhost/registry", discardLogger())
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	for _, kind := range interfaces.AllEntityKinds {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+kind.Collection()+" (")
	}
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS settings (")
}

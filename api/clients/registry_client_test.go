package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/healthcare-entity-registry/api"
	"github.com/ruteri/healthcare-entity-registry/database"
	"github.com/ruteri/healthcare-entity-registry/httpserver"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/ruteri/healthcare-entity-registry/registration"
	"github.com/ruteri/healthcare-entity-registry/registry"
	"github.com/ruteri/healthcare-entity-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	entityAddress = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	operator      = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

type backend struct {
	contract *registry.MockRegistryClient
	content  *storage.FileBackend
	client   *RegistryClient
}

func setupBackend(t *testing.T) *backend {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewMemoryStore()
	require.NoError(t, err)
	contract := registry.NewMockRegistryClient()
	contract.SetTransactOpts(operator)
	content, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	service := registration.NewService(contract, content, db, nil, logger)
	handler := httpserver.NewHandler(db, db, contract, service, content, logger)

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &backend{contract: contract, content: content, client: NewRegistryClient(server.URL + "/")}
}

func TestRegistryClient_Entities(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	hash, err := storage.ComputeCID([]byte("payload"))
	require.NoError(t, err)
	record := &interfaces.EntityRecord{
		Address:         entityAddress,
		Name:            "Acme Pharma",
		PhysicalAddress: "3 Lab Way",
		ContentHash:     hash,
		CreatedBy:       operator,
		Timestamp:       42,
	}

	require.NoError(t, b.client.SaveEntity(ctx, interfaces.ManufacturerKind, record))
	assert.ErrorIs(t, b.client.SaveEntity(ctx, interfaces.ManufacturerKind, record), interfaces.ErrEntityExists)

	got, err := b.client.GetEntity(ctx, interfaces.ManufacturerKind, entityAddress)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ManufacturerKind, got.Kind)
	assert.Equal(t, record.ContentHash, got.ContentHash)
	assert.Equal(t, int64(42), got.Timestamp)

	_, err = b.client.GetEntity(ctx, interfaces.PharmacyKind, entityAddress)
	assert.ErrorIs(t, err, interfaces.ErrEntityNotFound)

	list, err := b.client.ListEntities(ctx, interfaces.ManufacturerKind)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = b.client.ListEntities(ctx, interfaces.DistributorKind)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegistryClient_Settings(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	setting := &interfaces.Setting{Key: "contract", Value: "0xabc"}
	require.NoError(t, b.client.PutSetting(ctx, setting))
	assert.NotZero(t, setting.UpdatedAt)

	got, err := b.client.GetSetting(ctx, "contract")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Value)

	settings, err := b.client.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, settings, 1)

	require.NoError(t, b.client.DeleteSetting(ctx, "contract"))
	assert.ErrorIs(t, b.client.DeleteSetting(ctx, "contract"), interfaces.ErrSettingNotFound)
	_, err = b.client.GetSetting(ctx, "contract")
	assert.ErrorIs(t, err, interfaces.ErrSettingNotFound)
}

func TestRegistryClient_Register(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	req := interfaces.RegistrationRequest{
		Address:         entityAddress.Hex(),
		Name:            "Corner Pharmacy",
		PhysicalAddress: "1 Main St",
		ContactPerson:   "Jane Doe",
		ContactNumber:   "555-0100",
	}

	resp, err := b.client.Register(ctx, interfaces.PharmacyKind, req)
	require.NoError(t, err)
	assert.Equal(t, "Pharmacy registered successfully!", resp.Message)

	role, err := b.client.RoleOf(ctx, entityAddress)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Role("Pharmacy"), role)

	content, err := b.client.Content(ctx, resp.ContentHash)
	require.NoError(t, err)
	require.NoError(t, storage.VerifyCID(resp.ContentHash, content))

	_, err = b.client.Register(ctx, interfaces.PharmacyKind, req)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 409, statusErr.StatusCode)
	assert.Equal(t, "This address is already registered as Pharmacy.", statusErr.Body.Error)

	req.Name = ""
	_, err = b.client.Register(ctx, interfaces.DistributorKind, req)
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.Equal(t, []string{"name"}, statusErr.Body.Fields)
}

// The client can stand in as the mirror of a locally run registration.
func TestRegistryClient_AsMirror(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	local := registry.NewMockRegistryClient()
	local.SetTransactOpts(operator)
	service := registration.NewService(local, b.content, b.client, nil, logger)

	result, err := service.Register(ctx, interfaces.DistributorKind, interfaces.RegistrationRequest{
		Address:         entityAddress.Hex(),
		Name:            "Acme Logistics",
		PhysicalAddress: "9 Dock Rd",
		ContactPerson:   "Sam Roe",
		ContactNumber:   "555-0199",
	})
	require.NoError(t, err)

	mirrored, err := b.client.GetEntity(ctx, interfaces.DistributorKind, entityAddress)
	require.NoError(t, err)
	assert.Equal(t, result.ContentHash, mirrored.ContentHash)
	assert.Equal(t, operator, mirrored.CreatedBy)
}

func TestRegistryClient_Unreachable(t *testing.T) {
	client := NewRegistryClient("http://127.0.0.1:1")
	_, err := client.ListSettings(context.Background())
	assert.Error(t, err)
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/healthcare-entity-registry/api"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/ruteri/healthcare-entity-registry/registration"
	"github.com/ruteri/healthcare-entity-registry/registry"
	"github.com/ruteri/healthcare-entity-registry/storage"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Registrar runs the registration workflow.
type Registrar interface {
	Register(ctx context.Context, kind interfaces.EntityKind, req interfaces.RegistrationRequest) (*registration.Result, error)
}

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the backend API. Roles, Registrar and Content are optional;
// routes that need a missing dependency answer 503.
type Handler struct {
	entities  interfaces.EntityRepository
	settings  interfaces.SettingsRepository
	roles     interfaces.RoleResolver
	registrar Registrar
	content   interfaces.OffchainStore
	log       *slog.Logger

	now func() time.Time
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
func NewHandler(entities interfaces.EntityRepository, settings interfaces.SettingsRepository, roles interfaces.RoleResolver, registrar Registrar, content interfaces.OffchainStore, log *slog.Logger) *Handler {
	return &Handler{
		entities:  entities,
		settings:  settings,
		roles:     roles,
		registrar: registrar,
		content:   content,
		log:       log,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/entities/{collection}", h.HandleListEntities)
	r.Get("/api/entities/{collection}/{address}", h.HandleGetEntity)
	r.Post("/api/entities/{collection}", h.HandleCreateEntity)

	r.Get("/api/settings", h.HandleListSettings)
	r.Get("/api/settings/{key}", h.HandleGetSetting)
	r.Put("/api/settings/{key}", h.HandlePutSetting)
	r.Delete("/api/settings/{key}", h.HandleDeleteSetting)

	r.Get("/api/roles/{address}", h.HandleRole)
	r.Post("/api/register/{kind}", h.HandleRegister)
	r.Get("/api/content/{hash}", h.HandleContent)
}

// Ready checks the database when the entity repository supports it.
func (h *Handler) Ready(ctx context.Context) error {
	if pinger, ok := h.entities.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// HandleListEntities returns every mirrored entity of a collection, oldest first.
//
// URL format: GET /api/entities/{collection}
func (h *Handler) HandleListEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kindFromPath(w, r, "collection")
	if !ok {
		return
	}

	records, err := h.entities.ListEntities(r.Context(), kind)
	if err != nil {
		h.log.Error("Failed to list entities", slog.String("kind", string(kind)), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleGetEntity returns one mirrored entity.
//
// URL format: GET /api/entities/{collection}/{address}
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kindFromPath(w, r, "collection")
	if !ok {
		return
	}
	address, ok := addressFromPath(w, r)
	if !ok {
		return
	}

	record, err := h.entities.GetEntity(r.Context(), kind, address)
	switch {
	case errors.Is(err, interfaces.ErrEntityNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		h.log.Error("Failed to get entity", slog.String("kind", string(kind)), "err", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, record)
	}
}

// HandleCreateEntity mirrors a registration into the collection's table.
// The record's kind is taken from the path; a zero timestamp is set to now.
//
// URL format: POST /api/entities/{collection}
func (h *Handler) HandleCreateEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kindFromPath(w, r, "collection")
	if !ok {
		return
	}

	var record interfaces.EntityRecord
	if !decodeBody(w, r, &record) {
		return
	}

	record.Kind = kind
	record.Name = strings.TrimSpace(record.Name)
	record.PhysicalAddress = strings.TrimSpace(record.PhysicalAddress)
	if record.Address == (common.Address{}) {
		writeError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}
	if record.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	if record.PhysicalAddress == "" {
		writeError(w, http.StatusBadRequest, errors.New("physicalAddress is required"))
		return
	}
	if record.CreatedBy == (common.Address{}) {
		writeError(w, http.StatusBadRequest, errors.New("createdBy is required"))
		return
	}
	hash, err := interfaces.ParseContentHash(string(record.ContentHash))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record.ContentHash = hash
	if record.Timestamp == 0 {
		record.Timestamp = h.now().UnixMilli()
	}

	err = h.entities.SaveEntity(r.Context(), kind, &record)
	switch {
	case errors.Is(err, interfaces.ErrEntityExists):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		h.log.Error("Failed to save entity", slog.String("kind", string(kind)), "err", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		h.log.Info("Mirrored entity",
			slog.String("kind", string(kind)),
			slog.String("address", record.Address.Hex()),
			slog.String("cid", string(record.ContentHash)))
		writeJSON(w, http.StatusCreated, record)
	}
}

// HandleListSettings returns all settings ordered by key.
//
// URL format: GET /api/settings
func (h *Handler) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.ListSettings(r.Context())
	if err != nil {
		h.log.Error("Failed to list settings", "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleGetSetting returns one setting.
//
// URL format: GET /api/settings/{key}
func (h *Handler) HandleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.GetSetting(r.Context(), chi.URLParam(r, "key"))
	switch {
	case errors.Is(err, interfaces.ErrSettingNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		h.log.Error("Failed to get setting", "err", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, setting)
	}
}

// HandlePutSetting creates or replaces a setting.
//
// URL format: PUT /api/settings/{key}
// Request body: {"value": "..."}
func (h *Handler) HandlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("setting key is required"))
		return
	}

	var body api.SettingValue
	if !decodeBody(w, r, &body) {
		return
	}

	setting := &interfaces.Setting{Key: key, Value: body.Value, UpdatedAt: h.now().UnixMilli()}
	if err := h.settings.PutSetting(r.Context(), setting); err != nil {
		h.log.Error("Failed to store setting", slog.String("key", key), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// HandleDeleteSetting removes a setting.
//
// URL format: DELETE /api/settings/{key}
func (h *Handler) HandleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	err := h.settings.DeleteSetting(r.Context(), chi.URLParam(r, "key"))
	switch {
	case errors.Is(err, interfaces.ErrSettingNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		h.log.Error("Failed to delete setting", "err", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRole resolves the on-chain role of an address.
//
// URL format: GET /api/roles/{address}
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	if h.roles == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no chain client configured"))
		return
	}
	address, ok := addressFromPath(w, r)
	if !ok {
		return
	}

	role, err := h.roles.RoleOf(r.Context(), address)
	if err != nil {
		h.log.Error("Failed to resolve role", slog.String("address", address.Hex()), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, api.RoleResponse{
		Address:    address,
		Role:       role,
		Registered: role.Registered(),
	})
}

// HandleRegister runs the registration workflow with the server's signing account.
//
// URL format: POST /api/register/{kind}
// Request body: interfaces.RegistrationRequest
// Response: api.RegisterResponse with status 201
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if h.registrar == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("registration is not enabled on this server"))
		return
	}
	kind, ok := h.kindFromPath(w, r, "kind")
	if !ok {
		return
	}

	var req interfaces.RegistrationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.registrar.Register(r.Context(), kind, req)
	if err != nil {
		h.writeRegistrationError(w, kind, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.RegisterResponse{
		Message:     result.Message,
		Record:      result.Record,
		ContentHash: result.ContentHash,
		TxHash:      result.TxHash,
	})
}

func (h *Handler) writeRegistrationError(w http.ResponseWriter, kind interfaces.EntityKind, err error) {
	var (
		validationErr *registration.ValidationError
		registeredErr *registration.AlreadyRegisteredError
		stepErr       *registration.StepError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Fields: validationErr.FieldNames()})
	case errors.As(err, &registeredErr):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &stepErr):
		status := http.StatusBadGateway
		if errors.Is(err, registry.ErrNoTransactOpts) {
			status = http.StatusServiceUnavailable
		}
		h.log.Error("Registration failed",
			slog.String("kind", string(kind)),
			slog.String("step", stepErr.Step),
			"err", err)
		writeJSON(w, status, api.ErrorResponse{
			Error:       err.Error(),
			Step:        stepErr.Step,
			ContentHash: stepErr.ContentHash,
			TxHash:      stepErr.TxHash,
		})
	case errors.Is(err, interfaces.ErrUnknownEntityKind):
		writeError(w, http.StatusNotFound, err)
	default:
		h.log.Error("Registration failed", slog.String("kind", string(kind)), "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// HandleContent returns a stored registration payload after checking it against its CID.
//
// URL format: GET /api/content/{hash}
func (h *Handler) HandleContent(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no content store configured"))
		return
	}

	hash, err := interfaces.ParseContentHash(chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := h.content.Fetch(r.Context(), hash)
	switch {
	case errors.Is(err, interfaces.ErrContentNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.log.Error("Failed to fetch content", slog.String("cid", string(hash)), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if err := storage.VerifyCID(hash, data); err != nil {
		h.log.Error("Fetched content does not match its CID", slog.String("cid", string(hash)), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) kindFromPath(w http.ResponseWriter, r *http.Request, param string) (interfaces.EntityKind, bool) {
	kind, err := interfaces.ParseEntityKind(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return "", false
	}
	return kind, true
}

func addressFromPath(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address %q", raw))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package registration implements the entity registration workflow:
// validate, check the on-chain role, upload the payload, submit the
// registration transaction and mirror the result into the database.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/ruteri/healthcare-entity-registry/metrics"
)

// Result describes a completed registration.
type Result struct {
	Record      *interfaces.EntityRecord
	ContentHash interfaces.ContentHash
	TxHash      common.Hash
	Message     string
}

// Service runs registrations one request at a time; each call is independent
// and short-circuits on the first failing step.
type Service struct {
	contract interfaces.RegistrationContract
	store    interfaces.OffchainStore
	mirror   interfaces.EntityMirror
	metrics  *metrics.Recorder
	log      *slog.Logger

	validate *validator.Validate
	now      func() time.Time
}

func NewService(contract interfaces.RegistrationContract, store interfaces.OffchainStore, mirror interfaces.EntityMirror, recorder *metrics.Recorder, log *slog.Logger) *Service {
	return &Service{
		contract: contract,
		store:    store,
		mirror:   mirror,
		metrics:  recorder,
		log:      log,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate trims the request in place and checks every field.
func (s *Service) Validate(req *interfaces.RegistrationRequest) error {
	req.Normalize()

	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = fe.Tag()
	}
	return verr
}

// Register runs the full workflow for kind.
func (s *Service) Register(ctx context.Context, kind interfaces.EntityKind, req interfaces.RegistrationRequest) (*Result, error) {
	result, err := s.register(ctx, kind, req)
	s.metrics.ObserveRegistration(string(kind), outcome(err))
	return result, err
}

func (s *Service) register(ctx context.Context, kind interfaces.EntityKind, req interfaces.RegistrationRequest) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrUnknownEntityKind, kind)
	}

	if err := s.Validate(&req); err != nil {
		return nil, err
	}
	account := common.HexToAddress(req.Address)
	log := s.log.With(slog.String("kind", string(kind)), slog.String("address", account.Hex()))

	started := time.Now()
	role, err := s.contract.RoleOf(ctx, account)
	s.metrics.ObserveStep(StepRoleLookup, started, err)
	if err != nil {
		return nil, &StepError{Step: StepRoleLookup, Err: err}
	}
	if role.Registered() {
		log.Info("Address already registered", slog.String("role", role.String()))
		return nil, &AlreadyRegisteredError{Role: role}
	}

	payload, err := json.Marshal(interfaces.RegistrationPayload{
		Address:         account,
		Role:            kind.Role(),
		Name:            req.Name,
		PhysicalAddress: req.PhysicalAddress,
		ContactPerson:   req.ContactPerson,
		ContactNumber:   req.ContactNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	started = time.Now()
	hash, err := s.store.Store(ctx, payload)
	s.metrics.ObserveStep(StepUpload, started, err)
	if err != nil {
		return nil, &StepError{Step: StepUpload, Err: err}
	}
	log.Debug("Uploaded registration payload", slog.String("cid", string(hash)))

	started = time.Now()
	sender, err := s.contract.Sender()
	if err != nil {
		s.metrics.ObserveStep(StepTransaction, started, err)
		return nil, &StepError{Step: StepTransaction, ContentHash: hash, Err: err}
	}
	receipt, err := s.contract.Register(ctx, kind, account, hash)
	s.metrics.ObserveStep(StepTransaction, started, err)
	if err != nil {
		return nil, &StepError{Step: StepTransaction, ContentHash: hash, Err: err}
	}
	log.Info("Registration transaction mined",
		slog.String("tx", receipt.TxHash.Hex()),
		slog.Any("block", receipt.BlockNumber))

	record := &interfaces.EntityRecord{
		Kind:            kind,
		Address:         account,
		Name:            req.Name,
		PhysicalAddress: req.PhysicalAddress,
		ContentHash:     hash,
		CreatedBy:       sender,
		Timestamp:       s.now().UnixMilli(),
	}

	started = time.Now()
	err = s.mirror.SaveEntity(ctx, kind, record)
	s.metrics.ObserveStep(StepPersistence, started, err)
	if err != nil {
		log.Error("Registration mined but mirror write failed",
			slog.String("cid", string(hash)),
			slog.String("tx", receipt.TxHash.Hex()),
			"err", err)
		return nil, &StepError{Step: StepPersistence, ContentHash: hash, TxHash: receipt.TxHash.Hex(), Err: err}
	}

	return &Result{
		Record:      record,
		ContentHash: hash,
		TxHash:      receipt.TxHash,
		Message:     fmt.Sprintf("%s registered successfully!", kind.Role()),
	}, nil
}

func outcome(err error) string {
	var (
		validationErr *ValidationError
		registeredErr *AlreadyRegisteredError
		stepErr       *StepError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &validationErr):
		return "invalid"
	case errors.As(err, &registeredErr):
		return "already_registered"
	case errors.As(err, &stepErr):
		return strings.ReplaceAll(stepErr.Step, " ", "_") + "_failed"
	default:
		return "error"
	}
}

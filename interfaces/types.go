package interfaces

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
)

// EntityKind identifies a category of healthcare entity that can be registered.
type EntityKind string

const (
	ManufacturerKind EntityKind = "manufacturer"
	DistributorKind  EntityKind = "distributor"
	PharmacyKind     EntityKind = "pharmacy"
)

// AllEntityKinds lists every supported kind in registration order.
var AllEntityKinds = []EntityKind{ManufacturerKind, DistributorKind, PharmacyKind}

var entityKindInfo = map[EntityKind]struct {
	role       Role
	collection string
}{
	ManufacturerKind: {role: "Manufacturer", collection: "manufacturers"},
	DistributorKind:  {role: "Distributor", collection: "distributors"},
	PharmacyKind:     {role: "Pharmacy", collection: "pharmacies"},
}

// ParseEntityKind resolves a kind from its name, its role or its collection name.
// Matching is case-insensitive.
func ParseEntityKind(s string) (EntityKind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, kind := range AllEntityKinds {
		info := entityKindInfo[kind]
		if needle == string(kind) || needle == strings.ToLower(string(info.role)) || needle == info.collection {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, s)
}

// Valid reports whether the kind is one of the supported kinds.
func (k EntityKind) Valid() bool {
	_, ok := entityKindInfo[k]
	return ok
}

// Role returns the on-chain role granted to entities of this kind.
func (k EntityKind) Role() Role {
	return entityKindInfo[k].role
}

// Collection returns the plural name used for mirror tables and API paths.
func (k EntityKind) Collection() string {
	return entityKindInfo[k].collection
}

// ContractMethod returns the name of the registration method on the contract.
func (k EntityKind) ContractMethod() string {
	return string(k.Role()) + "Registration"
}

func (k EntityKind) String() string {
	return string(k)
}

// Role is the role string the registration contract reports for an address.
type Role string

// UnregisteredRole is what the contract returns for an address without a role.
const UnregisteredRole Role = "Account is not Registered!"

// Registered reports whether the role denotes an existing registration. Any
// value other than UnregisteredRole, the empty string included, counts.
func (r Role) Registered() bool {
	return r != UnregisteredRole
}

func (r Role) String() string {
	return string(r)
}

// RegistrationRequest holds the fields an operator submits to register an entity.
type RegistrationRequest struct {
	Address         string `json:"address" validate:"required,eth_addr"`
	Name            string `json:"name" validate:"required"`
	PhysicalAddress string `json:"physicalAddress" validate:"required"`
	ContactPerson   string `json:"contactPerson" validate:"required"`
	ContactNumber   string `json:"contactNumber" validate:"required"`
}

// Normalize trims surrounding whitespace from every field.
func (r *RegistrationRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
	r.Name = strings.TrimSpace(r.Name)
	r.PhysicalAddress = strings.TrimSpace(r.PhysicalAddress)
	r.ContactPerson = strings.TrimSpace(r.ContactPerson)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
}

// RegistrationPayload is the document uploaded to off-chain storage for a registration.
type RegistrationPayload struct {
	Address         common.Address `json:"address"`
	Role            Role           `json:"role"`
	Name            string         `json:"name"`
	PhysicalAddress string         `json:"physicalAddress"`
	ContactPerson   string         `json:"contactPerson"`
	ContactNumber   string         `json:"contactNumber"`
}

// EntityRecord is the local mirror of a successful registration.
type EntityRecord struct {
	Kind            EntityKind     `json:"kind"`
	Address         common.Address `json:"address"`
	Name            string         `json:"name"`
	PhysicalAddress string         `json:"physicalAddress"`
	ContentHash     ContentHash    `json:"contentHash"`
	CreatedBy       common.Address `json:"createdBy"`
	// Timestamp is in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Setting is a key/value pair managed by the settings API.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	// UpdatedAt is in unix milliseconds.
	UpdatedAt int64 `json:"updatedAt"`
}

// ContentHash is the IPFS content identifier of a stored payload.
type ContentHash string

// ParseContentHash validates s as a CID and returns it in canonical string form.
func ParseContentHash(s string) (ContentHash, error) {
	c, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContentHash, err)
	}
	return ContentHash(c.String()), nil
}

// CID decodes the hash into a structured content identifier.
func (h ContentHash) CID() (cid.Cid, error) {
	c, err := cid.Decode(string(h))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidContentHash, err)
	}
	return c, nil
}

func (h ContentHash) String() string {
	return string(h)
}

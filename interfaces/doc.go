// Package interfaces defines core interfaces and types for the entity
// registration system, separating interface definitions from implementations.
//
// # Registration Interfaces
//
// RoleResolver: Looks up the role assigned to an address on the registration
// contract. An address holds at most one role; UnregisteredRole marks a free address.
//
// RegistrationContract: Submits the per-kind registration transaction and waits
// for it to be mined.
//
// # Storage Interfaces
//
// OffchainStore: Content-addressed storage for registration payloads across
// IPFS, S3 and local file backends. Content is addressed by CID.
//
// OffchainStoreFactory: Creates storage backends from URI strings and manages
// multi-backend configurations for redundant pinning.
//
// # Persistence Interfaces
//
// EntityMirror, EntityRepository and SettingsRepository describe the local
// database that mirrors registrations and holds application settings.
//
// # Core Types
//
//   - EntityKind: manufacturer, distributor or pharmacy
//   - RegistrationRequest: operator-submitted fields, all required
//   - RegistrationPayload: the JSON document pinned off-chain
//   - EntityRecord: the mirrored registration row
//   - ContentHash: IPFS CID of a pinned payload
package interfaces

// Package clients provides HTTP clients for the registry backend API.
//
// RegistryClient implements interfaces.EntityMirror, so the registration
// workflow can run on an operator machine and mirror its result through the
// backend instead of connecting to the database directly:
//
//	mirror := clients.NewRegistryClient("http://127.0.0.1:3001")
//	service := registration.NewService(contract, ipfs, mirror, nil, log)
package clients

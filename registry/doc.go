// Package registry provides a client for the on-chain entity registration
// contract.
//
// The contract is the authoritative source of role assignments: every address
// holds at most one role, and each entity kind has a dedicated registration
// method that grants its role and records the IPFS hash of the registration
// payload:
//
//	getUserRole(address account) view returns (string)
//	ManufacturerRegistration(address account, string ipfsHash)
//	DistributorRegistration(address account, string ipfsHash)
//	PharmacyRegistration(address account, string ipfsHash)
//
// Unregistered accounts report the role "Account is not Registered!".
//
// # Usage
//
//	client, _ := ethclient.Dial("http://127.0.0.1:8545")
//	reg, _ := registry.NewRegistrationClient(client, client, contractAddr)
//
//	role, _ := reg.RoleOf(ctx, account)
//
//	privateKey, _ := crypto.HexToECDSA("your-private-key")
//	auth, _ := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
//	reg.SetTransactOpts(auth)
//	receipt, _ := reg.Register(ctx, interfaces.PharmacyKind, account, hash)
//
// MockRegistry (testify) and MockRegistryClient (in-memory) stand in for the
// contract in tests of dependent packages.
package registry

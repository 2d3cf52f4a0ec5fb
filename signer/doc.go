// Package signer loads the registration account's private key and turns it
// into transaction options for the registry client.
//
// The key comes either from a hex string (flag or environment) or from a
// HashiCorp Vault KV v2 secret:
//
//	source, err := signer.NewVaultKeySource(vaultAddr, token, "secret", "registry/signer", "private_key", log)
//	key, err := source.PrivateKey(ctx)
//	auth, err := signer.NewTransactor(ctx, key, ethClient)
//	registryClient.SetTransactOpts(auth)
package signer

package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RegistrationABI is the ABI of the entity registration contract. Each entity
// kind has its own registration method taking the account and the IPFS hash of
// the registration payload.
const RegistrationABI = `[
	{
		"type": "function",
		"name": "getUserRole",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "string"}]
	},
	{
		"type": "function",
		"name": "ManufacturerRegistration",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "account", "type": "address"}, {"name": "ipfsHash", "type": "string"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "DistributorRegistration",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "account", "type": "address"}, {"name": "ipfsHash", "type": "string"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "PharmacyRegistration",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "account", "type": "address"}, {"name": "ipfsHash", "type": "string"}],
		"outputs": []
	}
]`

var parsedRegistrationABI = mustParseABI(RegistrationABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

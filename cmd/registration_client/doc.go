// Package main (cmd/registration_client) is the operator CLI for the entity registry.
//
// The register command runs the registration workflow on the operator's machine:
// it checks that the address holds no role, uploads the payload to the configured
// off-chain stores, submits the registration transaction signed with the operator's
// key and mirrors the result through the backend API. With --remote the backend
// runs the workflow and signs with its own account instead.
//
// The remaining commands read and manage backend state:
//
//	role <address>                 role currently assigned on chain
//	content <hash>                 stored registration payload
//	entities list <kind>           mirrored registrations, oldest first
//	entities get <kind> <address>  one mirrored registration
//	settings list|get|set|delete   application settings
//
// Example:
//
//	registration-client register --kind=pharmacy \
//	    --address=0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed \
//	    --name="Corner Pharmacy" --physical-address="1 Main St" \
//	    --contact-person="Jane Doe" --contact-number=555-0100 \
//	    --contract=$CONTRACT_ADDRESS --signer-key=$SIGNER_PRIVATE_KEY
package main

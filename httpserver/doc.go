/*
Package httpserver serves the registry backend API.

The server mirrors registrations into the database, exposes mirrored entities
and application settings, resolves on-chain roles, and can run the full
registration workflow with its own signing account.

# Status codes

  - 400 malformed request, invalid address or failed field validation
  - 404 unknown collection, entity, setting or content
  - 409 duplicate mirror row, or the address already holds an on-chain role
  - 502 an upstream step (chain, IPFS, database) failed
  - 503 the server has no signer, chain client or content store configured

Error bodies are api.ErrorResponse. A registration that fails after its
transaction was mined reports the content hash and transaction hash so the
mirror row can be written later with POST /api/entities/{collection}.

# Health

/livez, /readyz, /drain and /undrain follow the usual load balancer protocol.
pprof is mounted under /debug when enabled.
*/
package httpserver

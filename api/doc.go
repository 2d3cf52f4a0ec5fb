// Package api holds the types shared by the backend HTTP server and its clients.
//
// Routes served by the backend:
//
//	GET    /api/entities/{collection}            list mirrored entities, oldest first
//	GET    /api/entities/{collection}/{address}  one mirrored entity
//	POST   /api/entities/{collection}            mirror a registration
//	GET    /api/settings                         list settings
//	GET    /api/settings/{key}                   one setting
//	PUT    /api/settings/{key}                   create or replace a setting
//	DELETE /api/settings/{key}                   delete a setting
//	GET    /api/roles/{address}                  on-chain role of an address
//	POST   /api/register/{kind}                  run the registration workflow
//	GET    /api/content/{hash}                   fetch a stored payload
//
// Collections are manufacturers, distributors and pharmacies. Kinds accept the
// singular kind, the role name or the collection name.
package api

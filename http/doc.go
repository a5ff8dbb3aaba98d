// Package http provides the HTTP surface of authd: the request gate
// middleware and the avatar endpoints.
//
// # Request Gate
//
// Every inbound request is classified against a static route table. Public
// routes pass through untouched. Protected routes get bearer-token
// validation; a valid token attaches a Principal to the request context, an
// invalid or absent one forwards the request unauthenticated. The gate never
// answers 401 itself — rejection happens at route level:
//
//	r.Use(authdhttp.Gate(authd.DefaultRouteTable(), validator))
//	...
//	r.With(authdhttp.RequireAuth).Put("/users/{id}/avatar", h.handlePutAvatar)
//
// # Endpoints
//
//   - GET /files/{name}: serves stored avatar bytes, public, 404 as a JSON
//     error when the name does not resolve
//   - PUT /users/{id}/avatar: protected avatar upload; the caller must be the
//     subject itself or hold the admin permission
//
// Errors are JSON {error, message} responses.
package http

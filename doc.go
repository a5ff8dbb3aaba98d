// Package authd provides the authentication and asset layer of a user-account
// server: stateless bearer-token validation, request classification, and a
// pluggable object store used to hold and serve per-user avatar images.
//
// # Key Components
//
//   - TokenValidator: parses and verifies JWT bearer tokens into a Principal
//   - RouteTable: static public/protected classification of inbound requests
//   - AvatarService: avatar upload, auto-generation fallback chain, and URL
//     resolution on top of a FileStorage backend
//   - FileStorage: interface over blob storage (local filesystem, S3)
//
// # Avatar Fallback Chain
//
// Avatar resolution is best-effort by design. A failed upload or fetch never
// propagates into the surrounding account flow; the resolver degrades through
// an ordered chain instead:
//
//	uploaded image -> gravatar lookup -> initials image service -> default asset
//
// # Usage
//
//	storage := filesystem.New(root, repo, "/files")
//	avatars := authd.NewAvatarService(storage, authd.AvatarConfig{})
//
//	name := avatars.Save(ctx, user, upload)   // never fails, may return default
//	url := avatars.URLFor(user.Avatar)        // total, never fails
//
// See the http package for the request gate middleware and the avatar
// endpoint, and the filesystem and s3 packages for the storage backends.
package authd

// Package cybervault provides a personal file vault: authenticated users upload
// files into a blob store, keep a metadata record per file, and list, download
// and delete what they own.
//
// # Key Components
//
//   - Gateway: keeps a BlobStore and a MetaDataRepo in step for uploads and deletes
//   - Uploader: processes a batch of local files strictly one after another
//   - Lister: loads an identity's records newest-first, downloads and deletes rows
//   - SessionStore: tracks the current identity reported by an IdentityProvider
//   - AuthForm: the sign-in/sign-up flow
//   - Shell: composes the above and mounts the workspace only while signed in
//
// # Consistency
//
// A blob and its record are created and destroyed as a pair. Uploads store the
// blob first and insert the record second; in ConsistencyCompensate mode a failed
// insert removes the stored blob again. Deletes remove the blob first and never
// touch the record when that fails, so the only partial state a delete can leave
// behind is a record whose blob is gone (ErrDanglingRecord).
//
// # Example Usage
//
//	gw, err := cybervault.NewGateway(repo, blobs, cybervault.GatewayConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	shell := cybervault.NewShell(provider, gw, notifier, cybervault.ShellConfig{})
//	if err := shell.Mount(ctx); err != nil {
//	    slog.Warn("session fetch failed", "error", err)
//	}
//	defer shell.Unmount()
//
// See the database package for metadata backends, the filesystem, s3store and
// stowrystore packages for blob stores, and the identity package for the
// identity collaborator.
package cybervault

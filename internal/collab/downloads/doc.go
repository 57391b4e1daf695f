// Package downloads implements the download manager collaborator: record
// ownership, monotonic id assignment, the fetch engine, and the
// created/changed/erased signals the bridge fans out to extensions.
//
// The bridge only reads records and issues cancel/removeFile/erase side
// effects; everything else here is the manager's own lifecycle.
package downloads

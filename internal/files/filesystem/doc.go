// Package filesystem abstracts the files hiveseed reads: delimited source
// files and manifests.
//
// OSFileSystem reads the local disk. MemoryFileSystem keeps files in a map
// so engines and loaders can be tested without touching the disk. Missing
// paths report errors that match fs.ErrNotExist in both implementations.
package filesystem

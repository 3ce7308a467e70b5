// Package manifest loads patch manifests written in CUE.
//
// A manifest names the patch modules a deployment enables, their
// dependency edges, and the coordination settings (namespace, version,
// stale-lock timeout) its instances share. Loading produces a plain
// Manifest struct; dependency resolution itself lives in the patch
// engine, which consumes the declared edges.
package manifest

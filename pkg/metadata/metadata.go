// Package metadata edits Compute Engine instance metadata collections in
// memory. Publishing the result is left to the caller.
package metadata

import (
	compute "google.golang.org/api/compute/v1"
)

// Merge stores value under key in md and returns md. A nil md is replaced by an
// empty collection. The first item with a matching key is overwritten and the
// scan stops there, so later duplicates are left untouched. If no item
// matches, a new item is appended.
func Merge(md *compute.Metadata, key, value string) *compute.Metadata {
	if md == nil {
		md = &compute.Metadata{}
	}

	for _, item := range md.Items {
		if item == nil || item.Key != key {
			continue
		}
		item.Value = &value
		return md
	}

	md.Items = append(md.Items, &compute.MetadataItems{Key: key, Value: &value})
	return md
}

// Lookup returns the value of the first item with the given key.
func Lookup(md *compute.Metadata, key string) (string, bool) {
	if md == nil {
		return "", false
	}
	for _, item := range md.Items {
		if item == nil || item.Key != key {
			continue
		}
		if item.Value == nil {
			return "", true
		}
		return *item.Value, true
	}
	return "", false
}

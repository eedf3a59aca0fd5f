package catalog

import (
	"isl-announcer/internal/mediatypes"
)

// Asset is a resolved media file for one token part.
type Asset struct {
	Name string              `json:"name"`
	Path string              `json:"path"`
	Kind mediatypes.FileType `json:"kind"`
}

// IsVideo reports whether the asset is a video clip.
func (a Asset) IsVideo() bool {
	return a.Kind == mediatypes.FileTypeVideo
}

// Resolver maps token parts to assets using a fixed extension order.
type Resolver struct {
	catalog      *Catalog
	extensions   []string
	defaultAsset string
}

// NewResolver creates a resolver over cat using mediatypes.ResolveExtensions
// and mediatypes.DefaultAssetName.
func NewResolver(cat *Catalog) *Resolver {
	return &Resolver{
		catalog:      cat,
		extensions:   mediatypes.ResolveExtensions,
		defaultAsset: mediatypes.DefaultAssetName,
	}
}

// Resolve tries part+ext for each extension in order and returns the first hit.
func (r *Resolver) Resolve(part string) (Asset, bool) {
	if part == "" {
		return Asset{}, false
	}
	for _, ext := range r.extensions {
		if actual, ok := r.catalog.Lookup(part + ext); ok {
			return r.asset(actual), true
		}
	}
	return Asset{}, false
}

// Default returns the fallback clip, if the directory has one.
func (r *Resolver) Default() (Asset, bool) {
	actual, ok := r.catalog.Lookup(r.defaultAsset)
	if !ok {
		return Asset{}, false
	}
	return r.asset(actual), true
}

func (r *Resolver) asset(actual string) Asset {
	return Asset{
		Name: actual,
		Path: r.catalog.Path(actual),
		Kind: mediatypes.GetFileType(mediatypes.Ext(actual)),
	}
}

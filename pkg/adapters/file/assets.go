package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/storyline/pkg/domain"
)

// DefaultAssetExtensions are tried in order when resolving an asset id.
var DefaultAssetExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// AssetResolver implements ports.AssetResolver over a directory of images
// named after their logical id.
type AssetResolver struct {
	Dir        string
	Extensions []string
}

// NewAssetResolver creates a resolver rooted at dir.
func NewAssetResolver(dir string) *AssetResolver {
	return &AssetResolver{Dir: dir, Extensions: DefaultAssetExtensions}
}

// Resolve returns the path of the first existing `<dir>/<id><ext>`.
func (r *AssetResolver) Resolve(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrAssetNotFound, id)
	}
	for _, ext := range r.Extensions {
		p := filepath.Join(r.Dir, id+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrAssetNotFound, id)
}

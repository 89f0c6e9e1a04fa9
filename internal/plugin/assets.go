package plugin

import (
	"fmt"
	"io/fs"
	"os"

	"pakaudio/internal/log"
)

// AssetResolver hands out the platform's asset filesystem.
type AssetResolver interface {
	Assets() (fs.FS, error)
}

// DirAssets resolves to a directory on disk.
type DirAssets string

func (d DirAssets) Assets() (fs.FS, error) {
	info, err := os.Stat(string(d))
	if err != nil {
		return nil, fmt.Errorf("asset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset dir %s is not a directory", d)
	}
	return os.DirFS(string(d)), nil
}

// FSAssets resolves to an existing filesystem, e.g. an embed.FS.
type FSAssets struct{ FS fs.FS }

func (a FSAssets) Assets() (fs.FS, error) {
	if a.FS == nil {
		return nil, fmt.Errorf("no asset filesystem")
	}
	return a.FS, nil
}

// LoadResourcePackFromAssets resolves the asset filesystem and loads filename
// from it into packID.
func LoadResourcePackFromAssets(b Backend, r AssetResolver, packID int, filename string, stream bool) bool {
	assets, err := r.Assets()
	if err != nil {
		log.ErrorErr(log.CatPlugin, "Failed to resolve assets", err, "pack", packID, "file", filename)
		return false
	}
	return b.LoadResourcePackFromAsset(assets, packID, filename, stream)
}

package build

import (
	"os"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// Clean removes the staging area and purges build byproducts from the
// project. Packaged artifacts are kept.
func Clean(cfg *config.Config) error {
	staging := cfg.StagingPath()
	if err := os.RemoveAll(staging); err != nil {
		return errors.New("E117").WithDetail(staging).Wrap(err)
	}
	fsutil.Purge(cfg.Dir(), cfg.Build.TrashPatterns, true)
	return nil
}

package esm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ErrNoPackageJSON is returned when no package.json exists at or above the
// starting directory.
var ErrNoPackageJSON = errors.New("no package.json found")

// PackageInfo is the subset of package.json that matters for ESM output.
type PackageInfo struct {
	Path       string
	Name       string
	Type       string
	NodeEngine string // engines.node, verbatim
}

// IsModule reports whether Node treats .js files in the package as ESM.
func (p PackageInfo) IsModule() bool {
	return p.Type == "module"
}

// FindPackageJSON reads the nearest package.json at or above start.
func FindPackageJSON(start string) (PackageInfo, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return PackageInfo{}, err
	}
	for {
		candidate := filepath.Join(dir, "package.json")
		data, err := os.ReadFile(candidate)
		if err == nil {
			return parsePackageJSON(candidate, data)
		}
		if !os.IsNotExist(err) {
			return PackageInfo{}, fmt.Errorf("failed to read %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return PackageInfo{}, ErrNoPackageJSON
		}
		dir = parent
	}
}

func parsePackageJSON(path string, data []byte) (PackageInfo, error) {
	if !gjson.ValidBytes(data) {
		return PackageInfo{}, fmt.Errorf("invalid JSON in %s", path)
	}
	res := gjson.GetManyBytes(data, "name", "type", "engines.node")
	return PackageInfo{
		Path:       path,
		Name:       res[0].String(),
		Type:       res[1].String(),
		NodeEngine: res[2].String(),
	}, nil
}

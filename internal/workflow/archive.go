package workflow

import (
	"archive/zip"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Archive validation failures.
var (
	ErrNotZip = errors.New("workflow: archive is not a zip file")
	ErrNoShp  = errors.New("workflow: no .shp in archive")
)

// ShapefileExts are the shapefile component extensions counted in an archive.
var ShapefileExts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg", ".qmd", ".qix"}

// ArchiveInfo summarizes the shapefile components found in a zip.
type ArchiveInfo struct {
	Shapefiles []string // .shp entries
	Components int      // entries with a shapefile component extension
	Skipped    []string // entries with any other extension
}

// ValidateArchive checks that name is a zip archive holding at least one
// .shp file before it is sent to the backend.
func ValidateArchive(name string) (ArchiveInfo, error) {
	var info ArchiveInfo

	zr, err := zip.OpenReader(name)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return info, fmt.Errorf("%w: %s", ErrNotZip, name)
		}
		return info, fmt.Errorf("workflow: open %s: %w", name, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		if !isShapefileExt(ext) {
			info.Skipped = append(info.Skipped, f.Name)
			continue
		}
		info.Components++
		if ext == ".shp" {
			info.Shapefiles = append(info.Shapefiles, f.Name)
		}
	}

	if len(info.Shapefiles) == 0 {
		return info, fmt.Errorf("%w: %s", ErrNoShp, name)
	}
	return info, nil
}

func isShapefileExt(ext string) bool {
	for _, e := range ShapefileExts {
		if e == ext {
			return true
		}
	}
	return false
}

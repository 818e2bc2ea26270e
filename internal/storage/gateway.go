package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

var errInvalidName = errors.New("invalid file name")

// Save writes doc into targetDir under its original name and returns the path.
// An existing file with the same name is overwritten.
func Save(doc domain.Document, targetDir string) (string, error) {
	if err := validateName(doc.Name); err != nil {
		return "", domain.E(domain.KindIO, "save", err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", domain.E(domain.KindIO, "save", err)
	}
	path := filepath.Join(targetDir, doc.Name)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return "", domain.E(domain.KindIO, "save", err)
	}
	return path, nil
}

// validateName keeps the document inside the target directory.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", errInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", errInvalidName, name)
	}
	return nil
}

// Gateway saves uploads into a fixed directory.
type Gateway struct {
	dir string
	log *logger.Logger
}

func NewGateway(dir string, log *logger.Logger) *Gateway {
	return &Gateway{dir: dir, log: log}
}

// Dir returns the upload directory.
func (g *Gateway) Dir() string { return g.dir }

// Save writes doc into the upload directory and returns its path.
func (g *Gateway) Save(doc domain.Document) (string, error) {
	path, err := Save(doc, g.dir)
	if err != nil {
		return "", err
	}
	g.log.Debug("document saved", "path", path, "bytes", len(doc.Data))
	return path, nil
}

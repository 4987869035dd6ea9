package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultCatalogDir is the subdirectory within the user's home directory.
const defaultCatalogDir = ".config/histreader"

// LoadCategoryCatalog reads seed category names from a file, one per line.
// Blank lines and lines starting with '#' are skipped, as is a leading
// "Category:" prefix. A relative path is resolved against ~/.config/histreader/.
func LoadCategoryCatalog(configuredPath string) ([]string, error) {
	if configuredPath == "" {
		return nil, nil
	}

	finalPath := configuredPath
	if !filepath.IsAbs(configuredPath) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		finalPath = filepath.Join(homeDir, defaultCatalogDir, configuredPath)
	}

	f, err := os.Open(finalPath)
	if err != nil {
		if os.IsNotExist(err) && !filepath.IsAbs(configuredPath) {
			return nil, fmt.Errorf("category catalog not found at default location '%s'. Please create it or specify an absolute path in config.yaml: %w", finalPath, err)
		}
		return nil, fmt.Errorf("failed to open category catalog '%s': %w", finalPath, err)
	}
	defer f.Close()

	var categories []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		categories = append(categories, strings.TrimPrefix(line, "Category:"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category catalog '%s': %w", finalPath, err)
	}
	return categories, nil
}

package manifest

import (
	"fmt"
	"os"
)

const starterManifest = `# docrunner build manifest
version: 2

build:
  os: ubuntu-24.04
  tools:
    python: "3.13"
  jobs:
    post_install:
      # Extra setup after dependency installation, e.g. a package manager:
      # - curl -LsSf https://astral.sh/uv/install.sh | sh
      # - uv sync --group docs

sphinx:
  configuration: docs/conf.py

formats:
  - html
`

// Init writes a commented starter manifest to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("build manifest already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterManifest), 0o644); err != nil {
		return fmt.Errorf("write build manifest: %w", err)
	}
	return nil
}

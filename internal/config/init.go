package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# jopsify configuration
joplin:
  # Joplin profile directory containing database.sqlite and resources/.
  # Environment variables are expanded, e.g. ${HOME}.
  dir: ${HOME}/.config/joplin-desktop

site:
  title: Notes
  output: ./site
  # Optional directory of favicon/branding files copied into the site root.
  # icon_dir: ./icons

publish:
  public_tag: public
  hidden_tag: private
  max_depth: 2
  # What to do with notebooks nested deeper than max_depth: skip, flatten or fail.
  on_depth_exceeded: skip
  # What to do when notebook parent links form a cycle: fail or skip.
  on_cycle: fail
  # Child ordering inside a notebook: title, created or updated.
  order_by: title
  recent_notes: 10

labels:
  created: Created
  updated: Last updated

watch:
  quiet_window: 2s
  max_delay: 30s
  # Periodic safety-net export; 0 disables.
  interval: 0s
  # Prometheus endpoint for watch mode; empty disables.
  # metrics_listen: 127.0.0.1:9921
`

// Init writes an example configuration file. An existing file is only
// overwritten with force.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil { // #nosec G306 - config template
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

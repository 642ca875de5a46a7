package store

import "os"

// Option configures how a single Save call formats and writes files.
type Option func(*saveConfig)

type saveConfig struct {
	prefix     string
	indent     string
	escapeHTML bool
	fileMode   os.FileMode
	dirMode    os.FileMode
}

func defaultSaveConfig() saveConfig {
	return saveConfig{
		escapeHTML: true,
		fileMode:   0644,
		dirMode:    0755,
	}
}

// WithIndent writes each JSON document indented, as json.MarshalIndent does.
func WithIndent(prefix, indent string) Option {
	return func(c *saveConfig) {
		c.prefix = prefix
		c.indent = indent
	}
}

// Pretty is WithIndent("", "  ").
func Pretty() Option {
	return WithIndent("", "  ")
}

// WithEscapeHTML controls escaping of <, > and & inside JSON strings.
// Default: true.
func WithEscapeHTML(escape bool) Option {
	return func(c *saveConfig) {
		c.escapeHTML = escape
	}
}

// WithFileMode sets the permission bits of written files. Default: 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(c *saveConfig) {
		c.fileMode = mode
	}
}

// WithDirMode sets the permission bits of the created target directory.
// Default: 0755.
func WithDirMode(mode os.FileMode) Option {
	return func(c *saveConfig) {
		c.dirMode = mode
	}
}

// Package buildinfo contains build-time metadata injected at startup
package buildinfo

import "runtime"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetCommit() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	Version   string // git version tag
	BuildDate string // time the binary was built
	Commit    string // short git commit hash
}

const unknown = "unknown"

func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return unknown
	}
	return c.Version
}

func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return unknown
	}
	return c.BuildDate
}

func (c *Context) GetCommit() string {
	if c == nil || c.Commit == "" {
		return unknown
	}
	return c.Commit
}

// Summary returns the metadata as a flat map for health and version output.
func Summary(bi BuildInfo) map[string]string {
	return map[string]string{
		"version":    bi.GetVersion(),
		"build_date": bi.GetBuildDate(),
		"commit":     bi.GetCommit(),
		"go_version": runtime.Version(),
	}
}

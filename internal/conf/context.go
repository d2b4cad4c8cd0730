package conf

import "github.com/cardoc/cardoc-go/internal/buildinfo"

// Context carries what every command needs. Settings is filled in by the
// root command once flags are parsed and the config file is loaded.
type Context struct {
	Settings *Settings
	Build    buildinfo.BuildInfo
}

// NewContext returns a Context with empty settings.
func NewContext(bi buildinfo.BuildInfo) *Context {
	if bi == nil {
		bi = &buildinfo.Context{}
	}
	return &Context{Settings: &Settings{}, Build: bi}
}

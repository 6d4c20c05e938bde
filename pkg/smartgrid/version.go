// Package smartgrid holds build metadata for the smartgrid module.
package smartgrid

// Version is the release of this module.
const Version = "0.1.0"

// ModulePath is the Go import path of this module.
const ModulePath = "github.com/mesh-intelligence/smartgrid"

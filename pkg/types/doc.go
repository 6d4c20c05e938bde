// Package types defines the kit, module and layout entities, the Repository
// contract the readiness engine consumes, the tag identifier codec and the
// standard errors shared by every smartgrid package.
package types

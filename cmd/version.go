// -- cmd/version.go --
package cmd

// Version is overridden at build time via
// -ldflags "-X github.com/codealphago/ai2thor/cmd.Version=...".
var Version = "0.1.0-dev"

package parley

// Version is the library version, overridable at build time with
// -ldflags "-X github.com/avelhao/parley.Version=...".
var Version = "0.1.0"

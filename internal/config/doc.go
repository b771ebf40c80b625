// Package config provides user configuration management for the Lumen tool.
//
// This package manages a YAML-based configuration file that stores tool
// preferences such as the discovery collection window and the multicast
// group override. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/lumen/config.yaml or $HOME/.config/lumen/config.yaml
//   - macOS: $HOME/.config/lumen/config.yaml
//   - Windows: %LOCALAPPDATA%\lumen\config.yaml
//
// Device aliases are assigned per session and are NOT persisted here.
//
// # Thread Safety
//
// The global settings use sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure atomic
// writes.
package config

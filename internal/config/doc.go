// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the shellstrap configuration.
//
// Configuration lives in a flat key=value file (comments start with '#')
// under the platform config directory. When the file is absent locally it
// is fetched once from a configured remote URL and persisted before
// parsing. Every key in RequiredKeys must be present or loading fails;
// startup never proceeds on a partial configuration.
package config

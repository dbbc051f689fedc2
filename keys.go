// keys.go: key/tag validation shared by the façade, tag index and
// single-flight coordinator.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "strings"

// isMeaningful reports whether s is non-empty once surrounding whitespace
// is trimmed. Keys and tags are both "non-empty, non-whitespace ordinal
// strings" per spec §3/§4.4.
func isMeaningful(s string) bool {
	return strings.TrimSpace(s) != ""
}

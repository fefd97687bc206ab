// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mouldcfg provides a mechanism to configure compatibility and
// debugging parameters via the MOULDGODEBUG environment variable.
//
// The value of MOULDGODEBUG is a comma-separated list of key=value pairs.
// For example:
//
//	MOULDGODEBUG=tracewire=1,suspendcap=64
package mouldcfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const compatibilityEnvKey = "MOULDGODEBUG"

var compatibilityParams map[string]string

func init() {
	var err error
	compatibilityParams, err = parseCompatibility(os.Getenv(compatibilityEnvKey))
	if err != nil {
		panic(err)
	}
}

// Value returns the value of the compatibility parameter with the given key.
// It returns an empty string if the key is not set.
func Value(key string) string {
	return compatibilityParams[key]
}

// Bool returns the boolean value of the compatibility parameter with the
// given key, or def if the key is unset or unparseable.
func Bool(key string, def bool) bool {
	v, ok := compatibilityParams[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns the integer value of the compatibility parameter with the
// given key, or def if the key is unset or unparseable.
func Int(key string, def int) int {
	v, ok := compatibilityParams[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseCompatibility(envValue string) (map[string]string, error) {
	if envValue == "" {
		return nil, nil
	}

	params := make(map[string]string)
	for part := range strings.SplitSeq(envValue, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("MOULDGODEBUG: invalid format: %q", part)
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return params, nil
}

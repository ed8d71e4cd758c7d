// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"fmt"
	goruntime "runtime"
)

// BuildInfo records the compile-time information for use when reporting the pl0 version.
type BuildInfo struct {
	Branch   string
	Version  string
	Revision string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf(
		"pl0 version %s git revision %s go version %s go arch %s go os %s",
		b.Version,
		b.Revision,
		goruntime.Version(),
		goruntime.GOARCH,
		goruntime.GOOS,
	)
}

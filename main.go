// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tharvik/firebase-tools/cmd"
	"github.com/tharvik/firebase-tools/pkg/output"
)

func main() {
	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, output.WithErrorFormat("ERROR: %s", err.Error()))
		os.Exit(1)
	}
}

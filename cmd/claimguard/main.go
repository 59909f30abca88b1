// ClaimGuard - Insurance claim fraud screening with a graceful fallback.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"os"

	"github.com/opensource-finance/claimguard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code without printing an error line;
// the command has already written its own output. "awm status --check"
// uses it to exit 1 while records are pending.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is checked by main.
func (e *ExitError) ExitCode() int {
	return e.Code
}

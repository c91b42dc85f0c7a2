// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "shellstrap/cmd/shellstrap"
)

func main() {
	cmd.Execute()
}

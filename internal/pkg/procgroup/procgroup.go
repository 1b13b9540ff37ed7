// Package procgroup makes a command and everything it spawns stop together
// when the command's context ends.
package procgroup

import (
	"os/exec"
	"time"
)

// WaitDelay bounds how long Wait keeps reading pipes after the process was
// killed, for descendants that escaped the group and still hold them
const WaitDelay = 2 * time.Second

// Configure puts cmd in its own process group and kills the whole group on
// cancellation. Call it before Start.
func Configure(cmd *exec.Cmd) {
	setGroup(cmd)
	cmd.WaitDelay = WaitDelay
}

// ainex is the spoken-language interface for the AiNex humanoid robot.
// It listens for speech, decides what was asked and answers out loud,
// moving the robot through the motion middleware when told to.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(runRobot).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

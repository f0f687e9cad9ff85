//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
var Default = Build

// Build compiles every command of the module.
func Build() error {
	mg.Deps(BuildGeomtool)
	fmt.Println("Compilation finished")
	return nil
}

// cgoEnv passes the HDF5 flags of the environment to the go tool.
func cgoEnv() []string {
	return append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
}

func BuildGeomtool() error {
	fmt.Println("Building geomtool executable...")
	cmd := exec.Command("go", "build", "-o", "./bin/geomtool", "./geomtool")
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Test runs the tests of every package.
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./...")
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

package cmd

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

func kill(pid int) error {
	p := strconv.Itoa(pid)
	switch runtime.GOOS {
	case "linux", "darwin":
		return exec.Command("kill", "-15", p).Run()
	case "windows":
		return exec.Command("taskkill", "/F", "/T", "/PID", p).Run()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

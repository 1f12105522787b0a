// Package device transfers camera folders from Android devices over adb
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sdejongh/mediakit/pkg/models"
)

// Device is a phone known by name in the configuration
type Device struct {
	Name   string `yaml:"-"`
	Serial string `yaml:"serial"`
}

// Lookup finds a configured device by name
func Lookup(devices map[string]Device, name string) (Device, error) {
	d, ok := devices[name]
	if !ok {
		known := make([]string, 0, len(devices))
		for n := range devices {
			known = append(known, n)
		}
		sort.Strings(known)
		if len(known) == 0 {
			return Device{}, fmt.Errorf("unknown device %q: no devices configured", name)
		}
		return Device{}, fmt.Errorf("unknown device %q (configured: %s)", name, strings.Join(known, ", "))
	}
	d.Name = name
	return d, nil
}

// Runner runs bridge commands against one device
type Runner interface {
	// Run executes one command and returns its standard output
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ADB runs the adb binary bound to a device serial
type ADB struct {
	Binary string
	Serial string
}

// NewADB creates a runner; an empty binary uses adb from PATH
func NewADB(binary, serial string) *ADB {
	if binary == "" {
		binary = "adb"
	}
	return &ADB{Binary: binary, Serial: serial}
}

// Run executes `adb -s <serial> args...`
func (a *ADB) Run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-s", a.Serial}, args...)
	cmd := exec.CommandContext(ctx, a.Binary, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	procErr := &models.ExternalProcessError{
		Tool:   "adb",
		Path:   strings.Join(args, " "),
		Stderr: stderr.String(),
		Err:    err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		procErr.ExitCode = exitErr.ExitCode()
	}
	return out, procErr
}

// shellQuote quotes s for the device shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

package io

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// CommandRunner executes external utilities and blocks until they exit
type CommandRunner interface {
	Run(program string, args ...string) error
	Output(program string, args ...string) ([]byte, error)
}

type StandardCommandRunner struct{}

func NewStandardCommandRunner() CommandRunner {
	return &StandardCommandRunner{}
}

func (r *StandardCommandRunner) Run(program string, args ...string) error {
	_, err := r.Output(program, args...)
	return err
}

func (r *StandardCommandRunner) Output(program string, args ...string) ([]byte, error) {
	runCmd := exec.Command(program, args...)
	glog.V(1).Infoln("start run cmd", runCmd.String())

	var cmdStdout, cmdStderr bytes.Buffer
	runCmd.Stdout = &cmdStdout
	runCmd.Stderr = &cmdStderr

	if err := runCmd.Run(); err != nil {
		glog.V(1).Infoln("run failed", runCmd.String(), "cmd-stdout", cmdStdout.String(), "cmd-stderr", cmdStderr.String(), err.Error())
		return nil, errors.Wrapf(err, "%s: %s", runCmd.String(), strings.TrimSpace(cmdStderr.String()))
	}
	return cmdStdout.Bytes(), nil
}

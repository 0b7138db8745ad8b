package cli

import (
	"fmt"
	"os"
)

func fileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// writeFile creates path and hands it to write, closing it afterwards.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", path), err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to close %s", path), err)
	}
	return nil
}

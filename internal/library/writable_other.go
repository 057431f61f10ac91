//go:build !unix

package library

import "os"

// Without access(2), check by creating a file.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".bertcam-write-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

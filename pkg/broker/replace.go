package broker

import "github.com/natefinch/atomic"

func replaceFile(staged, path string) error {
	return atomic.ReplaceFile(staged, path)
}

package myaudio

import "github.com/cardoc/cardoc-go/internal/logger"

// GetLogger returns the myaudio logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("myaudio")
}

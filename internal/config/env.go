// Package config provides environment helpers for go-facepipe commands.
package config

import (
	"os"
	"strconv"
)

// Defaults used when no environment override is present.
const (
	DefaultCameraIndex    = 0
	DefaultYuNetModel     = "models/face_detection_yunet.onnx"
	DefaultLandmarkSocket = "/tmp/facepipe-landmarks.sock"
	DefaultPort           = "8080"
	DefaultLogLevel       = "info"
)

// CameraIndex returns the capture device index from FACEPIPE_CAMERA.
// Falls back to the provided default if unset or not a number.
func CameraIndex(def int) int {
	if v := os.Getenv("FACEPIPE_CAMERA"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}

// ModelPath returns the YuNet ONNX model path from FACEPIPE_YUNET_MODEL.
func ModelPath(def string) string {
	return stringEnv("FACEPIPE_YUNET_MODEL", def)
}

// LandmarkSocket returns the landmark service socket from FACEPIPE_LANDMARK_SOCKET.
func LandmarkSocket(def string) string {
	return stringEnv("FACEPIPE_LANDMARK_SOCKET", def)
}

// Port returns the dashboard port from FACEPIPE_PORT.
func Port(def string) string {
	return stringEnv("FACEPIPE_PORT", def)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel(def string) string {
	return stringEnv("LOG_LEVEL", def)
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

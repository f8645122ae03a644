package capture

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// DetectorConfig holds YuNet settings.
type DetectorConfig struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence
	InputWidth       int     // Initial model input width
	InputHeight      int     // Initial model input height
}

// YuNetDetector uses OpenCV's FaceDetectorYN to produce face metadata.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	cfg      DetectorConfig
	mu       sync.Mutex // Protects inference
}

// NewYuNet loads the YuNet model.
func NewYuNet(cfg DetectorConfig) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		cfg.InputWidth, cfg.InputHeight = 320, 320
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                                        // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight), // Updated per image
		float32(cfg.ConfidenceThresh),             // Score threshold
		0.3,                                       // NMS threshold
		5000,                                      // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{detector: detector, cfg: cfg}, nil
}

// Detect finds faces in a BGR image and returns them as face objects with
// bounds normalized to the image, in detector order.
func (d *YuNetDetector) Detect(img gocv.Mat) ([]face.RawObject, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())
	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	// Each row: x, y, w, h, five landmark pairs, score.
	objects := make([]face.RawObject, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		objects = append(objects, face.RawObject{
			Kind: face.KindFace,
			Bounds: face.NormRect{
				X: float64(faces.GetFloatAt(r, 0)) / imgW,
				Y: float64(faces.GetFloatAt(r, 1)) / imgH,
				W: float64(faces.GetFloatAt(r, 2)) / imgW,
				H: float64(faces.GetFloatAt(r, 3)) / imgH,
			},
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}
	return objects, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

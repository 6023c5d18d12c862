package adapter

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrNoModelPath = errors.New("no neural model path configured")

// NeuralOptions locates a pre-trained ONNX network and its tensor names
type NeuralOptions struct {
	ModelPath string
	// LibraryPath overrides the onnxruntime shared library location
	LibraryPath string
	InputName   string
	OutputName  string
	InputWidth  int
}

func NewDefaultNeuralOptions() *NeuralOptions {
	return &NeuralOptions{
		InputName:  "input",
		OutputName: "output",
	}
}

var ortInit sync.Once
var ortInitErr error

func initializeEnvironment(libraryPath string) error {
	ortInit.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// ONNXRunner runs an ONNX graph with a dynamic batch dimension
type ONNXRunner struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	width   int
}

// NewONNXRunner loads the network at opt.ModelPath
func NewONNXRunner(opt *NeuralOptions) (*ONNXRunner, error) {
	if opt == nil || opt.ModelPath == "" {
		return nil, ErrNoModelPath
	}
	def := NewDefaultNeuralOptions()
	inputName, outputName := opt.InputName, opt.OutputName
	if inputName == "" {
		inputName = def.InputName
	}
	if outputName == "" {
		outputName = def.OutputName
	}

	if err := initializeEnvironment(opt.LibraryPath); err != nil {
		return nil, fmt.Errorf("unable to initialize onnx runtime, %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("unable to create session options, %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(opt.ModelPath,
		[]string{inputName}, []string{outputName}, options)
	if err != nil {
		return nil, fmt.Errorf("unable to load onnx model %q, %w", opt.ModelPath, err)
	}
	return &ONNXRunner{session: session, width: opt.InputWidth}, nil
}

func (r *ONNXRunner) InputWidth() int {
	return r.width
}

func (r *ONNXRunner) Run(input []float32, rows, features int) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, errors.New("onnx session is closed")
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(int64(rows), 1, int64(features)), input)
	if err != nil {
		return nil, fmt.Errorf("unable to create input tensor, %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(rows), 1))
	if err != nil {
		return nil, fmt.Errorf("unable to create output tensor, %w", err)
	}
	defer outputTensor.Destroy()

	if err := r.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed, %w", err)
	}
	return slices.Clone(outputTensor.GetData()), nil
}

func (r *ONNXRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	return err
}

// Package testutil provides mock implementations for interfaces defined in the
// chconv core library (pkg/converter and subpackages) plus fixture helpers.
package testutil

import (
	"sync"
	"time"

	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stackvity/chconv/pkg/converter/encoding"
	"github.com/stretchr/testify/mock"
)

// MockDetector provides a mock implementation of the encoding.Detector interface.
// Configure expectations using testify/mock methods (e.g., .On("Detect", ...).Return(...)).
type MockDetector struct {
	mock.Mock
}

// Detect mocks the Detect method.
func (m *MockDetector) Detect(content []byte) (string, error) {
	args := m.Called(content)
	return args.String(0), args.Error(1)
}

// MockTranscoder provides a mock implementation of the encoding.Transcoder interface.
type MockTranscoder struct {
	mock.Mock
}

// Transcode mocks the Transcode method.
func (m *MockTranscoder) Transcode(content []byte, from, to string) ([]byte, error) {
	args := m.Called(content, from, to)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

// MockClassifier provides a mock implementation of the encoding.Classifier interface.
type MockClassifier struct {
	mock.Mock
}

// Classify mocks the Classify method.
func (m *MockClassifier) Classify(path string) (bool, string, error) {
	args := m.Called(path)
	return args.Bool(0), args.String(1), args.Error(2)
}

// MockHooks provides a mock implementation of the converter.Hooks interface.
type MockHooks struct {
	mock.Mock
}

// OnFileDiscovered mocks the OnFileDiscovered method.
func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnDiscoveryComplete mocks the OnDiscoveryComplete method.
func (m *MockHooks) OnDiscoveryComplete(total int) error {
	args := m.Called(total)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report converter.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// StaticDetector is a deterministic, map-driven detector for tests that run
// many files concurrently. Content not in Labels maps to Default, or to
// encoding.ErrUnrecognizedEncoding when Default is empty.
type StaticDetector struct {
	Labels  map[string]string
	Default string
}

// Detect implements encoding.Detector.
func (d *StaticDetector) Detect(content []byte) (string, error) {
	if len(content) == 0 {
		return "", encoding.ErrEmptyContent
	}
	if label, ok := d.Labels[string(content)]; ok {
		return label, nil
	}
	if d.Default == "" {
		return "", encoding.ErrUnrecognizedEncoding
	}
	return d.Default, nil
}

// CountingDetectorFactory wraps a factory and records how many detectors
// were built.
type CountingDetectorFactory struct {
	mu    sync.Mutex
	count int
	New   func() encoding.Detector
}

// Factory returns an encoding.DetectorFactory backed by c.
func (c *CountingDetectorFactory) Factory() encoding.DetectorFactory {
	return func() encoding.Detector {
		c.mu.Lock()
		c.count++
		c.mu.Unlock()
		return c.New()
	}
}

// Count returns the number of detectors built so far.
func (c *CountingDetectorFactory) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// RecordingHooks collects hook events for assertions. It is safe for
// concurrent use.
type RecordingHooks struct {
	mu         sync.Mutex
	Discovered []string
	Statuses   map[string]converter.Status
	Messages   map[string]string
	Total      int
	Completed  bool
	Report     converter.Report
}

// OnFileDiscovered implements converter.Hooks.
func (h *RecordingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Discovered = append(h.Discovered, path)
	return nil
}

// OnDiscoveryComplete implements converter.Hooks.
func (h *RecordingHooks) OnDiscoveryComplete(total int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Total = total
	return nil
}

// OnFileStatusUpdate implements converter.Hooks. Only the latest status per
// path is kept.
func (h *RecordingHooks) OnFileStatusUpdate(path string, status converter.Status, message string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Statuses == nil {
		h.Statuses = make(map[string]converter.Status)
		h.Messages = make(map[string]string)
	}
	h.Statuses[path] = status
	h.Messages[path] = message
	return nil
}

// OnRunComplete implements converter.Hooks.
func (h *RecordingHooks) OnRunComplete(report converter.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Completed = true
	h.Report = report
	return nil
}

// StatusOf returns the last status recorded for path.
func (h *RecordingHooks) StatusOf(path string) converter.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Statuses[path]
}

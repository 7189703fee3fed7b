// Package util carries small helpers shared by the reader and the
// collector: a no-op InfluxDB write API for metric-less runs and an
// operation timer.
package util

import "github.com/influxdata/influxdb-client-go/api/write"

// MockWriteAPI satisfies the InfluxDB write API without doing anything. It
// is the default metrics sink, so decode paths can write points
// unconditionally.
type MockWriteAPI struct{}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

// Errors returns a nil channel; nothing is ever written, nothing ever
// fails.
func (m *MockWriteAPI) Errors() <-chan error { return nil }

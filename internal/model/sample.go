// internal/model/sample.go
package model

import "time"

// MetricSample represents the metrics read from one device during one poll
// cycle. Fields hold numbers, enum labels or booleans keyed by register or
// bitmap field name. A metric that failed to read is simply absent.
type MetricSample struct {
	DeviceID  string
	Fields    map[string]interface{}
	Timestamp time.Time
}

// NewMetricSample creates an empty sample stamped with the current time
func NewMetricSample(deviceID string) *MetricSample {
	return &MetricSample{
		DeviceID:  deviceID,
		Fields:    make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Empty reports whether the sample carries no fields
func (s *MetricSample) Empty() bool {
	return len(s.Fields) == 0
}

// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric provides primitives for collecting metrics.
//
// Metrics are registered once, usually from package-level variable
// initializers, and are updated with atomic operations. The registry can be
// exported in Prometheus text exposition format.
package metric

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/sync"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInvalidName indicates that a metric name does not start with '/'
	// or contains characters that cannot be exported.
	ErrInvalidName = errors.New("metric name is invalid")

	// ErrFieldHasNoAllowedValues indicates that the field needs to define
	// some allowed values to be a valid and useful field.
	ErrFieldHasNoAllowedValues = errors.New("metric field does not define any allowed values")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues []string) Field {
	return Field{name: name, allowedValues: allowedValues}
}

// Uint64Metric encapsulates a uint64 that represents some kind of metric to
// be monitored.
type Uint64Metric struct {
	name        string
	description string
	fields      []Field

	// keys holds every combination of field values in registration order.
	keys [][]string

	// values maps the joined field values to a counter. It is populated
	// by NewUint64Metric and never modified afterwards, so it may be read
	// without locking.
	values map[string]*atomicbitops.Uint64
}

// registry holds all registered metrics.
var registry = struct {
	mu      sync.Mutex
	metrics map[string]*Uint64Metric
}{
	metrics: make(map[string]*Uint64Metric),
}

// NewUint64Metric creates and registers a new cumulative metric with the
// given name.
func NewUint64Metric(name, description string, fields ...Field) (*Uint64Metric, error) {
	if err := verifyName(name); err != nil {
		return nil, err
	}
	for _, f := range fields {
		if len(f.allowedValues) == 0 {
			return nil, ErrFieldHasNoAllowedValues
		}
	}

	m := &Uint64Metric{
		name:        name,
		description: description,
		fields:      fields,
		values:      make(map[string]*atomicbitops.Uint64),
	}
	for _, key := range combinations(fields) {
		m.keys = append(m.keys, key)
		m.values[joinKey(key)] = &atomicbitops.Uint64{}
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.metrics[name]; ok {
		return nil, ErrNameInUse
	}
	registry.metrics[name] = m
	return m, nil
}

// MustCreateNewUint64Metric calls NewUint64Metric and panics if it returns
// an error.
func MustCreateNewUint64Metric(name, description string, fields ...Field) *Uint64Metric {
	m, err := NewUint64Metric(name, description, fields...)
	if err != nil {
		panic(fmt.Sprintf("Unable to create metric %q: %s", name, err))
	}
	return m
}

// Name returns the metric name.
func (m *Uint64Metric) Name() string {
	return m.name
}

// Value returns the current value of the metric for the given set of fields.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.counter(fieldValues).Load()
}

// Increment increments the metric field by 1.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.counter(fieldValues).Add(1)
}

// IncrementBy increments the metric by v.
func (m *Uint64Metric) IncrementBy(v uint64, fieldValues ...string) {
	m.counter(fieldValues).Add(v)
}

func (m *Uint64Metric) counter(fieldValues []string) *atomicbitops.Uint64 {
	if len(fieldValues) != len(m.fields) {
		panic(fmt.Sprintf("metric %s: got %d field values, want %d", m.name, len(fieldValues), len(m.fields)))
	}
	c, ok := m.values[joinKey(fieldValues)]
	if !ok {
		panic(fmt.Sprintf("metric %s: invalid field values %v", m.name, fieldValues))
	}
	return c
}

// family converts m into its Prometheus representation.
func (m *Uint64Metric) family(prefix string) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(exportName(prefix, m.name)),
		Help: proto.String(m.description),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, key := range m.keys {
		pm := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(m.values[joinKey(key)].Load()))},
		}
		for i, f := range m.fields {
			pm.Label = append(pm.Label, &dto.LabelPair{
				Name:  proto.String(f.name),
				Value: proto.String(key[i]),
			})
		}
		mf.Metric = append(mf.Metric, pm)
	}
	return mf
}

// Values returns a snapshot of every registered metric without fields,
// keyed by metric name. Metrics with fields are reported per combination
// as "name{value,...}".
func Values() map[string]uint64 {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	vals := make(map[string]uint64)
	for name, m := range registry.metrics {
		for _, key := range m.keys {
			k := name
			if len(key) > 0 {
				k = fmt.Sprintf("%s{%s}", name, strings.Join(key, ","))
			}
			vals[k] = m.values[joinKey(key)].Load()
		}
	}
	return vals
}

// WritePrometheus writes all registered metrics to w in the Prometheus text
// exposition format. Metric names are prefixed with prefix and have their
// path separators replaced with underscores.
func WritePrometheus(w io.Writer, prefix string) error {
	registry.mu.Lock()
	names := make([]string, 0, len(registry.metrics))
	for name := range registry.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	metrics := make([]*Uint64Metric, 0, len(names))
	for _, name := range names {
		metrics = append(metrics, registry.metrics[name])
	}
	registry.mu.Unlock()

	for _, m := range metrics {
		if _, err := expfmt.MetricFamilyToText(w, m.family(prefix)); err != nil {
			return fmt.Errorf("writing metric %s: %w", m.name, err)
		}
	}
	return nil
}

func verifyName(name string) error {
	if len(name) < 2 || name[0] != '/' {
		return ErrInvalidName
	}
	for _, c := range name[1:] {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '/':
		default:
			return ErrInvalidName
		}
	}
	return nil
}

func exportName(prefix, name string) string {
	n := strings.ReplaceAll(strings.TrimPrefix(name, "/"), "/", "_")
	if prefix == "" {
		return n
	}
	return prefix + "_" + n
}

func joinKey(fieldValues []string) string {
	return strings.Join(fieldValues, "\x00")
}

// combinations returns the cartesian product of the fields' allowed values.
func combinations(fields []Field) [][]string {
	keys := [][]string{nil}
	for _, f := range fields {
		var next [][]string
		for _, k := range keys {
			for _, v := range f.allowedValues {
				nk := make([]string, len(k), len(k)+1)
				copy(nk, k)
				next = append(next, append(nk, v))
			}
		}
		keys = next
	}
	return keys
}

// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package timelinev1 contains the wire types for timeline data.
//
// The bindings are hand-maintained; keep them in sync with timeline.proto.
package timelinev1

import (
	proto "github.com/gogo/protobuf/proto"
)

// MetricKind distinguishes single-value metrics from time series.
type MetricKind int32

const (
	MetricKindSingleValue MetricKind = 0
	MetricKindTimeSeries  MetricKind = 1
)

func (k MetricKind) String() string {
	switch k {
	case MetricKindSingleValue:
		return "SINGLE_VALUE"
	case MetricKindTimeSeries:
		return "TIME_SERIES"
	default:
		return "UNKNOWN"
	}
}

// TimelineEntity is the unit of data ingested by an application collector
// and served back by the exposure endpoint.
type TimelineEntity struct {
	EntityType    string            `protobuf:"bytes,1,opt,name=entity_type,json=entityType,proto3" json:"entity_type,omitempty"`
	EntityId      string            `protobuf:"bytes,2,opt,name=entity_id,json=entityId,proto3" json:"entity_id,omitempty"`
	CreatedTimeMs int64             `protobuf:"varint,3,opt,name=created_time_ms,json=createdTimeMs,proto3" json:"created_time_ms,omitempty"`
	Info          map[string]string `protobuf:"bytes,4,rep,name=info,proto3" json:"info,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	Metrics       []*TimelineMetric `protobuf:"bytes,5,rep,name=metrics,proto3" json:"metrics,omitempty"`
	Events        []*TimelineEvent  `protobuf:"bytes,6,rep,name=events,proto3" json:"events,omitempty"`
}

func (m *TimelineEntity) Reset()         { *m = TimelineEntity{} }
func (m *TimelineEntity) String() string { return proto.CompactTextString(m) }
func (*TimelineEntity) ProtoMessage()    {}

func (m *TimelineEntity) GetEntityType() string {
	if m != nil {
		return m.EntityType
	}
	return ""
}

func (m *TimelineEntity) GetEntityId() string {
	if m != nil {
		return m.EntityId
	}
	return ""
}

func (m *TimelineEntity) GetCreatedTimeMs() int64 {
	if m != nil {
		return m.CreatedTimeMs
	}
	return 0
}

func (m *TimelineEntity) GetInfo() map[string]string {
	if m != nil {
		return m.Info
	}
	return nil
}

func (m *TimelineEntity) GetMetrics() []*TimelineMetric {
	if m != nil {
		return m.Metrics
	}
	return nil
}

func (m *TimelineEntity) GetEvents() []*TimelineEvent {
	if m != nil {
		return m.Events
	}
	return nil
}

// DeepCopy returns a deep copy of the entity so callers can mutate the result
// without affecting stored data.
func (m *TimelineEntity) DeepCopy() *TimelineEntity {
	if m == nil {
		return nil
	}
	return proto.Clone(m).(*TimelineEntity)
}

// TimelineMetric carries either a single value or a time series of samples
// keyed by millisecond timestamps.
type TimelineMetric struct {
	MetricId string            `protobuf:"bytes,1,opt,name=metric_id,json=metricId,proto3" json:"metric_id,omitempty"`
	Kind     int32             `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Values   map[int64]float64 `protobuf:"bytes,3,rep,name=values,proto3" json:"values,omitempty" protobuf_key:"varint,1,opt,name=key,proto3" protobuf_val:"fixed64,2,opt,name=value,proto3"`
}

func (m *TimelineMetric) Reset()         { *m = TimelineMetric{} }
func (m *TimelineMetric) String() string { return proto.CompactTextString(m) }
func (*TimelineMetric) ProtoMessage()    {}

func (m *TimelineMetric) GetMetricId() string {
	if m != nil {
		return m.MetricId
	}
	return ""
}

func (m *TimelineMetric) GetKind() int32 {
	if m != nil {
		return m.Kind
	}
	return 0
}

func (m *TimelineMetric) GetValues() map[int64]float64 {
	if m != nil {
		return m.Values
	}
	return nil
}

// TimelineEvent is a discrete occurrence attached to an entity.
type TimelineEvent struct {
	EventId     string            `protobuf:"bytes,1,opt,name=event_id,json=eventId,proto3" json:"event_id,omitempty"`
	TimestampMs int64             `protobuf:"varint,2,opt,name=timestamp_ms,json=timestampMs,proto3" json:"timestamp_ms,omitempty"`
	Info        map[string]string `protobuf:"bytes,3,rep,name=info,proto3" json:"info,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
}

func (m *TimelineEvent) Reset()         { *m = TimelineEvent{} }
func (m *TimelineEvent) String() string { return proto.CompactTextString(m) }
func (*TimelineEvent) ProtoMessage()    {}

func (m *TimelineEvent) GetEventId() string {
	if m != nil {
		return m.EventId
	}
	return ""
}

func (m *TimelineEvent) GetTimestampMs() int64 {
	if m != nil {
		return m.TimestampMs
	}
	return 0
}

func (m *TimelineEvent) GetInfo() map[string]string {
	if m != nil {
		return m.Info
	}
	return nil
}

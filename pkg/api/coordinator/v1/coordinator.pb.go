// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package coordinatorv1 contains the wire types for the coordinator report
// RPC.
//
// The bindings are hand-maintained; keep them in sync with coordinator.proto.
package coordinatorv1

import (
	proto "github.com/gogo/protobuf/proto"
)

type ReportNewCollectorRequest struct {
	ApplicationId string `protobuf:"bytes,1,opt,name=application_id,json=applicationId,proto3" json:"application_id,omitempty"`
	Address       string `protobuf:"bytes,2,opt,name=address,proto3" json:"address,omitempty"`
}

func (m *ReportNewCollectorRequest) Reset()         { *m = ReportNewCollectorRequest{} }
func (m *ReportNewCollectorRequest) String() string { return proto.CompactTextString(m) }
func (*ReportNewCollectorRequest) ProtoMessage()    {}

func (m *ReportNewCollectorRequest) GetApplicationId() string {
	if m != nil {
		return m.ApplicationId
	}
	return ""
}

func (m *ReportNewCollectorRequest) GetAddress() string {
	if m != nil {
		return m.Address
	}
	return ""
}

type ReportNewCollectorResponse struct{}

func (m *ReportNewCollectorResponse) Reset()         { *m = ReportNewCollectorResponse{} }
func (m *ReportNewCollectorResponse) String() string { return proto.CompactTextString(m) }
func (*ReportNewCollectorResponse) ProtoMessage()    {}

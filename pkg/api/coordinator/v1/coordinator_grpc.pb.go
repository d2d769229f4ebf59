// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coordinatorv1

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const CollectorCoordinator_ReportNewCollector_FullMethodName = "/coordinator.v1.CollectorCoordinator/ReportNewCollector"

// CollectorCoordinatorClient is the client API for the CollectorCoordinator
// service.
type CollectorCoordinatorClient interface {
	ReportNewCollector(ctx context.Context, in *ReportNewCollectorRequest, opts ...grpc.CallOption) (*ReportNewCollectorResponse, error)
}

type collectorCoordinatorClient struct {
	cc grpc.ClientConnInterface
}

func NewCollectorCoordinatorClient(cc grpc.ClientConnInterface) CollectorCoordinatorClient {
	return &collectorCoordinatorClient{cc}
}

func (c *collectorCoordinatorClient) ReportNewCollector(ctx context.Context, in *ReportNewCollectorRequest, opts ...grpc.CallOption) (*ReportNewCollectorResponse, error) {
	out := new(ReportNewCollectorResponse)
	err := c.cc.Invoke(ctx, CollectorCoordinator_ReportNewCollector_FullMethodName, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CollectorCoordinatorServer is the server API for the CollectorCoordinator
// service.
type CollectorCoordinatorServer interface {
	ReportNewCollector(context.Context, *ReportNewCollectorRequest) (*ReportNewCollectorResponse, error)
}

// UnimplementedCollectorCoordinatorServer can be embedded to have forward
// compatible implementations.
type UnimplementedCollectorCoordinatorServer struct{}

func (UnimplementedCollectorCoordinatorServer) ReportNewCollector(context.Context, *ReportNewCollectorRequest) (*ReportNewCollectorResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ReportNewCollector not implemented")
}

func RegisterCollectorCoordinatorServer(s grpc.ServiceRegistrar, srv CollectorCoordinatorServer) {
	s.RegisterService(&CollectorCoordinator_ServiceDesc, srv)
}

func _CollectorCoordinator_ReportNewCollector_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReportNewCollectorRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CollectorCoordinatorServer).ReportNewCollector(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CollectorCoordinator_ReportNewCollector_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CollectorCoordinatorServer).ReportNewCollector(ctx, req.(*ReportNewCollectorRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// CollectorCoordinator_ServiceDesc is the grpc.ServiceDesc for the
// CollectorCoordinator service.
var CollectorCoordinator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "coordinator.v1.CollectorCoordinator",
	HandlerType: (*CollectorCoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ReportNewCollector",
			Handler:    _CollectorCoordinator_ReportNewCollector_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/api/coordinator/v1/coordinator.proto",
}

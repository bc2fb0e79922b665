package hostrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// This file is intentionally handwritten to avoid protoc in the minimal
// reference. It defines a tiny internal gRPC contract for the gateway's
// external statistics query surface.

type TargetStatsRequest struct {
	ConnectionId  string
	AddressNumber string
}

type ConnectionStatsRequest struct {
	ConnectionId string
}

type StatsReply struct {
	Found             bool
	FailedPollCount   int64
	TotalPollingCount int64
	AverageResponseMs int64
}

type ListConnectionsRequest struct{}

type ListConnectionsReply struct {
	ConnectionIds []string
}

// GatewayStatsService: called by the external API layer (client) -> gateway
// host (server).
type GatewayStatsServiceClient interface {
	GetTargetStats(ctx context.Context, in *TargetStatsRequest, opts ...grpc.CallOption) (*StatsReply, error)
	GetConnectionStats(ctx context.Context, in *ConnectionStatsRequest, opts ...grpc.CallOption) (*StatsReply, error)
	ListConnections(ctx context.Context, in *ListConnectionsRequest, opts ...grpc.CallOption) (*ListConnectionsReply, error)
}

type gatewayStatsServiceClient struct{ cc grpc.ClientConnInterface }

func NewGatewayStatsServiceClient(cc grpc.ClientConnInterface) GatewayStatsServiceClient {
	return &gatewayStatsServiceClient{cc}
}

func (c *gatewayStatsServiceClient) GetTargetStats(ctx context.Context, in *TargetStatsRequest, opts ...grpc.CallOption) (*StatsReply, error) {
	out := new(StatsReply)
	err := c.cc.Invoke(ctx, "/nx.internal.GatewayStatsService/GetTargetStats", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayStatsServiceClient) GetConnectionStats(ctx context.Context, in *ConnectionStatsRequest, opts ...grpc.CallOption) (*StatsReply, error) {
	out := new(StatsReply)
	err := c.cc.Invoke(ctx, "/nx.internal.GatewayStatsService/GetConnectionStats", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayStatsServiceClient) ListConnections(ctx context.Context, in *ListConnectionsRequest, opts ...grpc.CallOption) (*ListConnectionsReply, error) {
	out := new(ListConnectionsReply)
	err := c.cc.Invoke(ctx, "/nx.internal.GatewayStatsService/ListConnections", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type GatewayStatsServiceServer interface {
	GetTargetStats(context.Context, *TargetStatsRequest) (*StatsReply, error)
	GetConnectionStats(context.Context, *ConnectionStatsRequest) (*StatsReply, error)
	ListConnections(context.Context, *ListConnectionsRequest) (*ListConnectionsReply, error)
	mustEmbedUnimplementedGatewayStatsServiceServer()
}

type UnimplementedGatewayStatsServiceServer struct{}

func (UnimplementedGatewayStatsServiceServer) GetTargetStats(context.Context, *TargetStatsRequest) (*StatsReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTargetStats not implemented")
}
func (UnimplementedGatewayStatsServiceServer) GetConnectionStats(context.Context, *ConnectionStatsRequest) (*StatsReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetConnectionStats not implemented")
}
func (UnimplementedGatewayStatsServiceServer) ListConnections(context.Context, *ListConnectionsRequest) (*ListConnectionsReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListConnections not implemented")
}
func (UnimplementedGatewayStatsServiceServer) mustEmbedUnimplementedGatewayStatsServiceServer() {}

func RegisterGatewayStatsServiceServer(s grpc.ServiceRegistrar, srv GatewayStatsServiceServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "nx.internal.GatewayStatsService",
		HandlerType: (*GatewayStatsServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetTargetStats",
				Handler: func(_ interface{}, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					in := new(TargetStatsRequest)
					if err := dec(in); err != nil {
						return nil, err
					}
					return srv.GetTargetStats(ctx, in)
				},
			},
			{
				MethodName: "GetConnectionStats",
				Handler: func(_ interface{}, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					in := new(ConnectionStatsRequest)
					if err := dec(in); err != nil {
						return nil, err
					}
					return srv.GetConnectionStats(ctx, in)
				},
			},
			{
				MethodName: "ListConnections",
				Handler: func(_ interface{}, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					in := new(ListConnectionsRequest)
					if err := dec(in); err != nil {
						return nil, err
					}
					return srv.ListConnections(ctx, in)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "nx_gateway.proto",
	}, srv)
}

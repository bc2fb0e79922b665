package connsdk

import (
	"context"
	"fmt"
	"sort"
	"sync"

	hostrpc "github.com/NotrixInc/nx-conn-sdk/hostrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// StatsSnapshot is the wire-friendly form of a statistics triple.
type StatsSnapshot struct {
	FailedPollCount   int64
	TotalPollingCount int64
	AverageResponseMs int64
}

// GatewayStatsClient is used by the external API layer to query live polling
// statistics from the gateway host.
type GatewayStatsClient struct {
	cc *grpc.ClientConn
	c  hostrpc.GatewayStatsServiceClient
}

func DialGatewayStats(addr string) (*GatewayStatsClient, error) {
	// addr format: unix:////tmp/nxgateway.sock
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GatewayStatsClient{cc: conn, c: hostrpc.NewGatewayStatsServiceClient(conn)}, nil
}

func (g *GatewayStatsClient) Close() error { return g.cc.Close() }

// TargetStats queries one point's counters; found is false when the
// connection or address is unknown.
func (g *GatewayStatsClient) TargetStats(ctx context.Context, connectionID, addressNumber string) (StatsSnapshot, bool, error) {
	resp, err := g.c.GetTargetStats(ctx, &hostrpc.TargetStatsRequest{
		ConnectionId:  connectionID,
		AddressNumber: addressNumber,
	})
	if err != nil {
		return StatsSnapshot{}, false, err
	}
	return snapshotFromReply(resp), resp.Found, nil
}

// ConnectionStats queries the aggregate over every point of one connection.
func (g *GatewayStatsClient) ConnectionStats(ctx context.Context, connectionID string) (StatsSnapshot, bool, error) {
	resp, err := g.c.GetConnectionStats(ctx, &hostrpc.ConnectionStatsRequest{ConnectionId: connectionID})
	if err != nil {
		return StatsSnapshot{}, false, err
	}
	return snapshotFromReply(resp), resp.Found, nil
}

// Connections lists the connection IDs registered on the host.
func (g *GatewayStatsClient) Connections(ctx context.Context) ([]string, error) {
	resp, err := g.c.ListConnections(ctx, &hostrpc.ListConnectionsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.ConnectionIds, nil
}

func snapshotFromReply(r *hostrpc.StatsReply) StatsSnapshot {
	return StatsSnapshot{
		FailedPollCount:   r.FailedPollCount,
		TotalPollingCount: r.TotalPollingCount,
		AverageResponseMs: r.AverageResponseMs,
	}
}

func RequireStatsAddrFromEnv(getenv func(string) string) (string, error) {
	addr := getenv("NX_GATEWAY_STATS_ADDR")
	if addr == "" {
		return "", fmt.Errorf("NX_GATEWAY_STATS_ADDR is required")
	}
	return addr, nil
}

// GatewayStatsServer serves registered ConnectionStats over the hostrpc
// contract. The host registers each connection's stats after its Init and
// removes them on teardown; queries read the live lock-free counters.
type GatewayStatsServer struct {
	hostrpc.UnimplementedGatewayStatsServiceServer

	mu    sync.RWMutex
	conns map[string]*ConnectionStats
}

func NewGatewayStatsServer() *GatewayStatsServer {
	return &GatewayStatsServer{conns: make(map[string]*ConnectionStats)}
}

// RegisterConnection makes a connection's statistics queryable under id.
func (s *GatewayStatsServer) RegisterConnection(id string, stats *ConnectionStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = stats
}

// RemoveConnection withdraws a torn-down connection.
func (s *GatewayStatsServer) RemoveConnection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

func (s *GatewayStatsServer) GetTargetStats(ctx context.Context, in *hostrpc.TargetStatsRequest) (*hostrpc.StatsReply, error) {
	s.mu.RLock()
	stats := s.conns[in.ConnectionId]
	s.mu.RUnlock()
	if stats == nil {
		return &hostrpc.StatsReply{}, nil
	}

	ts := stats.GetTarget(in.AddressNumber)
	if ts == nil {
		return &hostrpc.StatsReply{}, nil
	}
	failed, total, avg := ts.Snapshot()
	return &hostrpc.StatsReply{
		Found:             true,
		FailedPollCount:   failed,
		TotalPollingCount: total,
		AverageResponseMs: avg,
	}, nil
}

func (s *GatewayStatsServer) GetConnectionStats(ctx context.Context, in *hostrpc.ConnectionStatsRequest) (*hostrpc.StatsReply, error) {
	s.mu.RLock()
	stats := s.conns[in.ConnectionId]
	s.mu.RUnlock()
	if stats == nil {
		return &hostrpc.StatsReply{}, nil
	}

	failed, total, avg := stats.GetAllStats().Snapshot()
	return &hostrpc.StatsReply{
		Found:             true,
		FailedPollCount:   failed,
		TotalPollingCount: total,
		AverageResponseMs: avg,
	}, nil
}

func (s *GatewayStatsServer) ListConnections(ctx context.Context, in *hostrpc.ListConnectionsRequest) (*hostrpc.ListConnectionsReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &hostrpc.ListConnectionsReply{ConnectionIds: ids}, nil
}

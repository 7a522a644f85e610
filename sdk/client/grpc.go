package client

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const scoreMethod = "/oracle.v1.Oracle/Score"

// GRPCClient calls the oracle gRPC surface.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

// NewGRPC wraps an established connection.
func NewGRPC(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// Score submits a weapon and returns the serialized weapon as JSON.
func (c *GRPCClient) Score(ctx context.Context, req *WeaponRequest, opts ...grpc.CallOption) (json.RawMessage, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	in := &structpb.Struct{}
	if err := in.UnmarshalJSON(body); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, scoreMethod, in, out, opts...); err != nil {
		return nil, err
	}
	data, err := out.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return data, nil
}

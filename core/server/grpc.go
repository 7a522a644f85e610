package server

import (
	"context"
	"errors"

	"github.com/d2oracle/oracle/core/oracle"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScoreMethod is the full gRPC method name of the score call.
const ScoreMethod = "/oracle.v1.Oracle/Score"

const metadataRequestID = "x-request-id"

// OracleServer is the gRPC surface. Requests and replies are JSON objects carried as Structs.
type OracleServer interface {
	Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var oracleServiceDesc = grpc.ServiceDesc{
	ServiceName: "oracle.v1.Oracle",
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oracle/v1/oracle.proto",
}

// RegisterOracleServer attaches srv to a gRPC server.
func RegisterOracleServer(s grpc.ServiceRegistrar, srv OracleServer) {
	s.RegisterService(&oracleServiceDesc, srv)
}

func scoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ScoreMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OracleServer).Score(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type grpcOracle struct {
	svc *oracle.Service
}

// NewGRPCServer adapts the scoring service to OracleServer.
func NewGRPCServer(svc *oracle.Service) OracleServer {
	return &grpcOracle{svc: svc}
}

func (g *grpcOracle) Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := requestIDFromMetadata(ctx)
	ctx = oracle.WithRequestID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(metadataRequestID, id))

	raw, err := in.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Invalid Request")
	}
	weapon, err := g.svc.Score(ctx, raw)
	if err != nil {
		return nil, grpcError(err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(weapon); err != nil {
		return nil, status.Errorf(codes.Internal, "encode weapon: %v", err)
	}
	return out, nil
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(metadataRequestID); len(vals) > 0 && vals[0] != "" && len(vals[0]) <= 128 {
			return vals[0]
		}
	}
	return uuid.NewString()
}

func grpcError(err error) error {
	f := oracle.Classify(err)
	switch {
	case errors.Is(err, oracle.ErrInvalidPayload), errors.Is(err, oracle.ErrMalformedField):
		return status.Error(codes.InvalidArgument, f.Message)
	case errors.Is(err, oracle.ErrEngineBusy):
		return status.Error(codes.ResourceExhausted, f.Message)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, f.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, f.Message)
	default:
		return status.Error(codes.Internal, f.Message)
	}
}

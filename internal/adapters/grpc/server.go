package grpc

import (
	"context"
	"errors"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/engine"
	"github.com/ament-gradle/ament-gradle/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "ament.gradle.v1.BuildService"

// BuildServiceServer is the server API for the build service.
type BuildServiceServer interface {
	Plan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStage(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// Planner produces the invocations of a stage. *engine.Engine implements it.
type Planner interface {
	Plan(ctx context.Context, stage domain.Stage, bc *domain.BuildContext) ([]domain.Invocation, error)
}

type BuildServer struct {
	planner Planner
	store   ports.StageStore
}

var _ BuildServiceServer = (*BuildServer)(nil)

// NewBuildServer serves stage history from store. Planning runs the build
// type's hooks on the daemon host, so a nil planner refuses Plan calls.
func NewBuildServer(planner Planner, store ports.StageStore) *BuildServer {
	return &BuildServer{planner: planner, store: store}
}

// Register adds the build service to s.
func Register(s *grpc.Server, srv BuildServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *BuildServer) Plan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.planner == nil {
		return nil, status.Error(codes.PermissionDenied, "planning is only served on unix sockets")
	}
	f := req.GetFields()
	stage, err := domain.ParseStage(str(f, "stage"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	bc, err := contextFromStruct(f["context"].GetStructValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	invs, err := s.planner.Plan(ctx, stage, bc)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"invocations": invocationsToList(invs)})
}

func (s *BuildServer) ListStages(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	runs, err := s.store.ListStages(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	stages := make([]any, 0, len(runs))
	for _, run := range runs {
		stages = append(stages, stageToMap(run, false))
	}
	return newStruct(map[string]any{"stages": stages})
}

func (s *BuildServer) GetStage(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	run, err := s.store.GetStage(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(stageToMap(run, true))
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return s, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrUnknownBuildType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BuildServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: planHandler},
		{MethodName: "ListStages", Handler: listStagesHandler},
		{MethodName: "GetStage", Handler: getStageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ament/gradle/v1/build.proto",
}

func planHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildServiceServer).Plan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Plan"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BuildServiceServer).Plan(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listStagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildServiceServer).ListStages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListStages"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BuildServiceServer).ListStages(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getStageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildServiceServer).GetStage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetStage"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BuildServiceServer).GetStage(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

package grpc

import (
	"context"
	"fmt"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a running ament-gradled.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to addr, e.g. unix:///tmp/ament-gradle.sock or host:port.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Plan(ctx context.Context, stage domain.Stage, bc *domain.BuildContext) ([]domain.Invocation, error) {
	in, err := structpb.NewStruct(map[string]any{
		"stage":   string(stage),
		"context": contextToMap(bc),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Plan", in, out); err != nil {
		return nil, err
	}
	return invocationsFromValue(out.GetFields()["invocations"]), nil
}

func (c *Client) ListStages(ctx context.Context) ([]*domain.StageRun, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListStages", &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	var runs []*domain.StageRun
	for _, v := range out.GetFields()["stages"].GetListValue().GetValues() {
		runs = append(runs, stageFromStruct(v.GetStructValue()))
	}
	return runs, nil
}

func (c *Client) GetStage(ctx context.Context, id string) (*domain.StageRun, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetStage", wrapperspb.String(id), out); err != nil {
		return nil, err
	}
	return stageFromStruct(out), nil
}

package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TradingServiceName is the fully qualified gRPC service name
const TradingServiceName = "papertrade.v1.TradingService"

// TradingServiceServer is the server API for the trading service.
// Every method takes and returns a google.protobuf.Struct.
type TradingServiceServer interface {
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Buy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sell(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStocks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarketSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TradingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TradingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(name),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TradingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FullMethod returns the gRPC method path of a trading service method
func FullMethod(name string) string {
	return "/" + TradingServiceName + "/" + name
}

// TradingServiceDesc describes the trading service for grpc.Server registration
var TradingServiceDesc = grpc.ServiceDesc{
	ServiceName: TradingServiceName,
	HandlerType: (*TradingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAccount", Handler: methodHandler("GetAccount", TradingServiceServer.GetAccount)},
		{MethodName: "Deposit", Handler: methodHandler("Deposit", TradingServiceServer.Deposit)},
		{MethodName: "Buy", Handler: methodHandler("Buy", TradingServiceServer.Buy)},
		{MethodName: "Sell", Handler: methodHandler("Sell", TradingServiceServer.Sell)},
		{MethodName: "GetPortfolioSummary", Handler: methodHandler("GetPortfolioSummary", TradingServiceServer.GetPortfolioSummary)},
		{MethodName: "ListStocks", Handler: methodHandler("ListStocks", TradingServiceServer.ListStocks)},
		{MethodName: "GetStock", Handler: methodHandler("GetStock", TradingServiceServer.GetStock)},
		{MethodName: "CreateStock", Handler: methodHandler("CreateStock", TradingServiceServer.CreateStock)},
		{MethodName: "UpdateStock", Handler: methodHandler("UpdateStock", TradingServiceServer.UpdateStock)},
		{MethodName: "DeleteStock", Handler: methodHandler("DeleteStock", TradingServiceServer.DeleteStock)},
		{MethodName: "GetMarketSummary", Handler: methodHandler("GetMarketSummary", TradingServiceServer.GetMarketSummary)},
		{MethodName: "Logout", Handler: methodHandler("Logout", TradingServiceServer.Logout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papertrade/v1/trading.proto",
}

// RegisterTradingServiceServer registers srv on s
func RegisterTradingServiceServer(s grpc.ServiceRegistrar, srv TradingServiceServer) {
	s.RegisterService(&TradingServiceDesc, srv)
}

// TradingServiceClient calls the trading service over a client connection
type TradingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTradingServiceClient creates a client on cc
func NewTradingServiceClient(cc grpc.ClientConnInterface) *TradingServiceClient {
	return &TradingServiceClient{cc: cc}
}

// Call invokes method with fields as the request Struct
func (c *TradingServiceClient) Call(ctx context.Context, method string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
)

// OrderServiceName is the fully qualified gRPC service. Messages are
// google.protobuf.Struct with the same field names as the HTTP API.
const OrderServiceName = "orders.v1.OrderService"

type orderServiceServer interface {
	CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListUserOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type GRPCHandler struct {
	orderService OrderService
	logger       *slog.Logger
}

func NewGRPCHandler(orderService OrderService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{orderService: orderService, logger: logger}
}

// RegisterOrderService registers h on s under OrderServiceName.
func RegisterOrderService(s grpc.ServiceRegistrar, h *GRPCHandler) {
	s.RegisterService(&orderServiceDesc, h)
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	order, err := h.orderService.Create(ctx, service.CreateOrderInput{
		UserID:      fields["user_id"],
		ProductList: fields["product_list"],
		TotalAmount: fields["total_amount"],
	})
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toStruct(order)
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := intField(req, "id")
	if !ok {
		return nil, status.Error(codes.NotFound, msgOrderNotFound)
	}

	order, err := h.orderService.Get(ctx, id)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toStruct(order)
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := intField(req, "id")
	if !ok {
		return nil, status.Error(codes.NotFound, msgOrderNotFound)
	}

	var next string
	if v, ok := req.GetFields()["status"]; ok {
		next = statusField(v.AsInterface())
	}

	st, err := h.orderService.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toStruct(statusData{Status: st})
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := intField(req, "id")
	if !ok {
		return nil, status.Error(codes.NotFound, msgOrderNotFound)
	}

	if err := h.orderService.Delete(ctx, id); err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{"deleted": true})
}

func (h *GRPCHandler) ListUserOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := intField(req, "user_id")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "user_id: "+msgUserIDInteger)
	}

	orders, err := h.orderService.ListByUser(ctx, userID)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toStruct(struct {
		Orders []domain.Order `json:"orders"`
	}{Orders: orders})
}

func (h *GRPCHandler) toStatus(ctx context.Context, err error) error {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.As(err, &nerr):
		return status.Error(codes.NotFound, msgOrderNotFound)
	default:
		h.logger.ErrorContext(ctx, "rpc failed", "error", err)
		return status.Error(codes.Internal, internalMessage(err))
	}
}

// toStruct converts v through its JSON encoding so both transports render
// orders identically.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// intField reads an integral number or numeric string.
func intField(req *structpb.Struct, name string) (int64, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

type structMethod func(h *GRPCHandler, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, m structMethod) grpc.MethodHandler {
	fullMethod := fmt.Sprintf("/%s/%s", OrderServiceName, method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(*GRPCHandler)
		if interceptor == nil {
			return m(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return m(h, ctx, req.(*structpb.Struct))
		})
	}
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*orderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: unaryHandler("CreateOrder", (*GRPCHandler).CreateOrder)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", (*GRPCHandler).GetOrder)},
		{MethodName: "UpdateOrderStatus", Handler: unaryHandler("UpdateOrderStatus", (*GRPCHandler).UpdateOrderStatus)},
		{MethodName: "DeleteOrder", Handler: unaryHandler("DeleteOrder", (*GRPCHandler).DeleteOrder)},
		{MethodName: "ListUserOrders", Handler: unaryHandler("ListUserOrders", (*GRPCHandler).ListUserOrders)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/orders.proto",
}

var _ orderServiceServer = (*GRPCHandler)(nil)

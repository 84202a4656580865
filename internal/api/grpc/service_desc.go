package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "camrent.v1.ReservationService"

// The service contract lives in api/proto/camrent/v1/reservation.proto. Every
// request and response is a google.protobuf.Struct carrying the JSON record of
// the matching domain type, so this descriptor is kept by hand in step with the
// .proto instead of generating message types.

// ReservationServiceServer is the server API for camrent.v1.ReservationService.
type ReservationServiceServer interface {
	CreateReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListReservations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdvanceReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetReservationStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAdminNotes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EventsForDay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchAvailability(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryMethod func(ReservationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReservationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReservationServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchAvailabilityHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ReservationServiceServer).WatchAvailability(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// ReservationServiceDesc describes camrent.v1.ReservationService for
// grpc.Server.RegisterService.
var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateReservation", ReservationServiceServer.CreateReservation),
		unaryHandler("GetReservation", ReservationServiceServer.GetReservation),
		unaryHandler("ListReservations", ReservationServiceServer.ListReservations),
		unaryHandler("AdvanceReservation", ReservationServiceServer.AdvanceReservation),
		unaryHandler("SetReservationStatus", ReservationServiceServer.SetReservationStatus),
		unaryHandler("UpdateAdminNotes", ReservationServiceServer.UpdateAdminNotes),
		unaryHandler("DeleteReservation", ReservationServiceServer.DeleteReservation),
		unaryHandler("GetAvailability", ReservationServiceServer.GetAvailability),
		unaryHandler("EventsForDay", ReservationServiceServer.EventsForDay),
		unaryHandler("GetNotifications", ReservationServiceServer.GetNotifications),
		unaryHandler("MarkNotificationRead", ReservationServiceServer.MarkNotificationRead),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAvailability",
			Handler:       watchAvailabilityHandler,
			ServerStreams: true,
		},
	},
	Metadata: "camrent/v1/reservation.proto",
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ReservationServiceDesc, srv)
}

// ReservationServiceClient calls camrent.v1.ReservationService.
type ReservationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationServiceClient(cc grpc.ClientConnInterface) *ReservationServiceClient {
	return &ReservationServiceClient{cc: cc}
}

// Call invokes the unary method named method.
func (c *ReservationServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationServiceClient) WatchAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ReservationServiceDesc.Streams[0], "/"+ServiceName+"/WatchAvailability", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

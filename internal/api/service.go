// Package api declares the Taskdex gRPC service. Messages travel as
// google.protobuf.Struct so the service needs no generated stubs.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskdex.v1.Taskdex"

// Method names.
const (
	MethodSignUp            = "SignUp"
	MethodSignIn            = "SignIn"
	MethodAddTask           = "AddTask"
	MethodListTasks         = "ListTasks"
	MethodToggleTask        = "ToggleTask"
	MethodDeleteTask        = "DeleteTask"
	MethodGetStats          = "GetStats"
	MethodListOffers        = "ListOffers"
	MethodRedeem            = "Redeem"
	MethodListCollection    = "ListCollection"
	MethodCollectionSummary = "CollectionSummary"
)

// FullMethod returns "/taskdex.v1.Taskdex/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// Public reports whether a method may be called without a bearer token.
func Public(fullMethod string) bool {
	return fullMethod == FullMethod(MethodSignUp) || fullMethod == FullMethod(MethodSignIn)
}

// TaskdexServer is the server API for the Taskdex service.
type TaskdexServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOffers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Redeem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCollection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CollectionSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TaskdexServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(TaskdexServer)
			if ic == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the Taskdex service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskdexServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodSignUp, TaskdexServer.SignUp),
		method(MethodSignIn, TaskdexServer.SignIn),
		method(MethodAddTask, TaskdexServer.AddTask),
		method(MethodListTasks, TaskdexServer.ListTasks),
		method(MethodToggleTask, TaskdexServer.ToggleTask),
		method(MethodDeleteTask, TaskdexServer.DeleteTask),
		method(MethodGetStats, TaskdexServer.GetStats),
		method(MethodListOffers, TaskdexServer.ListOffers),
		method(MethodRedeem, TaskdexServer.Redeem),
		method(MethodListCollection, TaskdexServer.ListCollection),
		method(MethodCollectionSummary, TaskdexServer.CollectionSummary),
	},
	Streams: []grpc.StreamDesc{},
}

// Register attaches srv to a gRPC service registrar.
func Register(r grpc.ServiceRegistrar, srv TaskdexServer) {
	r.RegisterService(&ServiceDesc, srv)
}

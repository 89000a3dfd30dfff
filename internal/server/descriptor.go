package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "certverify.v1.CertificateService"

const (
	MethodAnalyzeCertificate  = "/" + ServiceName + "/AnalyzeCertificate"
	MethodAnalyzeCertificates = "/" + ServiceName + "/AnalyzeCertificates"
	MethodExportCertificates  = "/" + ServiceName + "/ExportCertificates"
)

// CertificateServiceServer is the server API. Requests and responses are
// google.protobuf.Struct documents; the export returns raw XLSX bytes.
type CertificateServiceServer interface {
	AnalyzeCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeCertificates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCertificates(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var CertificateServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CertificateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeCertificate", Handler: analyzeCertificateHandler},
		{MethodName: "AnalyzeCertificates", Handler: analyzeCertificatesHandler},
		{MethodName: "ExportCertificates", Handler: exportCertificatesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

func RegisterCertificateServiceServer(s grpc.ServiceRegistrar, srv CertificateServiceServer) {
	s.RegisterService(&CertificateServiceDesc, srv)
}

func analyzeCertificateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertificateServiceServer).AnalyzeCertificate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodAnalyzeCertificate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CertificateServiceServer).AnalyzeCertificate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeCertificatesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertificateServiceServer).AnalyzeCertificates(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodAnalyzeCertificates}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CertificateServiceServer).AnalyzeCertificates(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func exportCertificatesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CertificateServiceServer).ExportCertificates(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodExportCertificates}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CertificateServiceServer).ExportCertificates(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// CertificateServiceClient calls CertificateService over a client connection.
type CertificateServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCertificateServiceClient(cc grpc.ClientConnInterface) *CertificateServiceClient {
	return &CertificateServiceClient{cc: cc}
}

func (c *CertificateServiceClient) AnalyzeCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodAnalyzeCertificate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CertificateServiceClient) AnalyzeCertificates(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodAnalyzeCertificates, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CertificateServiceClient) ExportCertificates(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, MethodExportCertificates, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package server

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar mounts a service's HTTP handlers on the authenticated
// router group.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

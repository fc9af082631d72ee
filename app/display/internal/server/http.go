package server

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iWorld-y/markee/app/display/internal/conf"
	"github.com/iWorld-y/markee/app/display/internal/service"
	"github.com/iWorld-y/markee/app/display/internal/usecase"
)

func NewHTTPServer(c *conf.Server, auth *conf.Auth, s *service.PlannerService, logger log.Logger) *http.Server {
	key := []byte(usecase.JwtKey(auth))
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
			selector.Server(
				jwt.Server(func(*jwtv5.Token) (interface{}, error) {
					return key, nil
				},
					jwt.WithSigningMethod(jwtv5.SigningMethodHS256),
					jwt.WithClaims(func() jwtv5.Claims { return jwtv5.MapClaims{} }),
				),
			).Match(requireAuth).Build(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != "" {
		if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	service.RegisterPlannerHTTPServer(srv, s)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}

// requireAuth 除注册和登录外的接口都需要 token
func requireAuth(_ context.Context, operation string) bool {
	_, public := service.PublicOperations[operation]
	return !public
}

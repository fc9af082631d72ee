package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/markee/app/display/internal/data"
	"github.com/iWorld-y/markee/app/display/internal/service"
	"github.com/iWorld-y/markee/app/display/internal/usecase"
	"github.com/iWorld-y/markee/app/planner/pkg/engine"
)

// ProviderSet 是展示服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Planner providers
	NewPlannerConfig,
	NewPlannerEngine,
	NewChatManager,
	wire.Bind(new(usecase.PlanGenerator), new(*engine.Engine)),

	// Data providers
	data.NewData,
	data.NewUserRepo,
	data.NewPlanRepo,

	// UseCase providers
	usecase.NewUserUseCase,
	usecase.NewPlanUseCase,

	// Service providers
	service.NewPlannerService,
)

package service

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/markee/app/display/internal/domain"
)

const (
	OperationPlannerRegister    = "/markee.planner.v1.Planner/Register"
	OperationPlannerLogin       = "/markee.planner.v1.Planner/Login"
	OperationPlannerCreatePlan  = "/markee.planner.v1.Planner/CreatePlan"
	OperationPlannerListPlans   = "/markee.planner.v1.Planner/ListPlans"
	OperationPlannerGetPlan     = "/markee.planner.v1.Planner/GetPlan"
	OperationPlannerDeletePlan  = "/markee.planner.v1.Planner/DeletePlan"
	OperationPlannerSendMessage = "/markee.planner.v1.Planner/SendMessage"
	OperationPlannerExportPlan  = "/markee.planner.v1.Planner/ExportPlan"
)

// PublicOperations 无需登录即可访问的接口
var PublicOperations = map[string]struct{}{
	OperationPlannerRegister: {},
	OperationPlannerLogin:    {},
}

// RegisterPlannerHTTPServer 注册全部路由
func RegisterPlannerHTTPServer(s *http.Server, srv *PlannerService) {
	r := s.Route("/")
	r.POST("/v1/auth/register", _Planner_Register0_HTTP_Handler(srv))
	r.POST("/v1/auth/login", _Planner_Login0_HTTP_Handler(srv))
	r.POST("/v1/plans", _Planner_CreatePlan0_HTTP_Handler(srv))
	r.GET("/v1/plans", _Planner_ListPlans0_HTTP_Handler(srv))
	r.GET("/v1/plans/{id}", _Planner_GetPlan0_HTTP_Handler(srv))
	r.DELETE("/v1/plans/{id}", _Planner_DeletePlan0_HTTP_Handler(srv))
	r.POST("/v1/plans/{id}/messages", _Planner_SendMessage0_HTTP_Handler(srv))
	r.GET("/v1/plans/{id}/export", _Planner_ExportPlan0_HTTP_Handler(srv))
}

func _Planner_Register0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RegisterReq
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlannerRegister)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Register(ctx, req.(*RegisterReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*RegisterReply))
	}
}

func _Planner_Login0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LoginReq
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlannerLogin)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Login(ctx, req.(*LoginReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*LoginReply))
	}
}

func _Planner_CreatePlan0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreatePlanReq
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlannerCreatePlan)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CreatePlan(ctx, req.(*CreatePlanReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*PlanReply))
	}
}

func _Planner_ListPlans0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListPlansReq
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlannerListPlans)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListPlans(ctx, req.(*ListPlansReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*ListPlansReply))
	}
}

func _Planner_GetPlan0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := PlanIdReq{Id: ctx.Vars().Get("id")}
		http.SetOperation(ctx, OperationPlannerGetPlan)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetPlan(ctx, req.(*PlanIdReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*PlanReply))
	}
}

func _Planner_DeletePlan0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := PlanIdReq{Id: ctx.Vars().Get("id")}
		http.SetOperation(ctx, OperationPlannerDeletePlan)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.DeletePlan(ctx, req.(*PlanIdReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*DeletePlanReply))
	}
}

func _Planner_SendMessage0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SendMessageReq
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Id = ctx.Vars().Get("id")
		http.SetOperation(ctx, OperationPlannerSendMessage)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.SendMessage(ctx, req.(*SendMessageReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*SendMessageReply))
	}
}

func _Planner_ExportPlan0_HTTP_Handler(srv *PlannerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := ExportPlanReq{
			Id:     ctx.Vars().Get("id"),
			Format: ctx.Query().Get("format"),
		}
		http.SetOperation(ctx, OperationPlannerExportPlan)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ExportPlan(ctx, req.(*ExportPlanReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		file := out.(*domain.Export)
		ctx.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
		return ctx.Blob(200, file.ContentType, file.Body)
	}
}

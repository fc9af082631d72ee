package engine

import (
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/eino-contrib/jsonschema"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// PlanSchema 由 MarketingPlan 结构体反射得到的 JSON Schema，
// 不使用 $ref，所有字段均为必填
func PlanSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(&dm.MarketingPlan{})
	s.Version = ""
	s.ID = ""
	return s
}

func planResponseFormat() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        "marketing_plan",
			Description: "A structured marketing plan with strategy, audience, content and campaigns.",
			JSONSchema:  PlanSchema(),
		},
	}
}

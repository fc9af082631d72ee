package engine

import (
	"fmt"
	"strings"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

const challengeDirective = `Crucially, the entire marketing plan, from the overall strategy to the specific campaign ideas, must be specifically designed to provide strategic solutions for the company's "Key Challenges". Each part of the plan should clearly tie back to solving these problems.`

// BuildPrompt 将公司画像组装为生成提示词
func BuildPrompt(p dm.CompanyProfile) string {
	var sb strings.Builder
	sb.WriteString("Based on the following company profile, create a comprehensive and actionable marketing plan.\n\n")
	sb.WriteString("Company Profile:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "- Description: %s\n", p.Description)
	fmt.Fprintf(&sb, "- Products/Services: %s\n", p.Products)
	fmt.Fprintf(&sb, "- Target Audience: %s\n", p.TargetAudience)
	fmt.Fprintf(&sb, "- Marketing Goals: %s\n", p.Goals)
	if p.Challenges != "" {
		fmt.Fprintf(&sb, "- Key Challenges to Solve: %s\n", p.Challenges)
	}

	sb.WriteString("\nGenerate a detailed plan covering overall strategy, target audience analysis, a content plan, and specific campaign ideas.\n")
	if p.Challenges != "" {
		sb.WriteString(challengeDirective)
		sb.WriteString("\n")
	}
	return sb.String()
}

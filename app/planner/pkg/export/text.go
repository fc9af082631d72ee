package export

import (
	"fmt"
	"regexp"
	"strings"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// AppName 导出文件名前缀
const AppName = "Markee"

var whitespace = regexp.MustCompile(`\s+`)

// FileName 生成导出文件名，公司名中的连续空白替换为下划线
func FileName(profile dm.CompanyProfile, ext string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(profile.Name), "_")
	return fmt.Sprintf("%s_Plan_for_%s.%s", AppName, name, strings.TrimPrefix(ext, "."))
}

// Text 将营销方案渲染为纯文本
func Text(profile dm.CompanyProfile, plan *dm.MarketingPlan) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Marketing Plan for: %s\n", profile.Name))
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")

	s := plan.OverallStrategy
	sb.WriteString(fmt.Sprintf("## Overall Strategy: %s ##\n", s.Title))
	sb.WriteString(s.Summary + "\n\n")
	sb.WriteString("Key Pillars:\n")
	for _, p := range s.KeyPillars {
		sb.WriteString("- " + p + "\n")
	}
	sb.WriteString("\n")

	a := plan.TargetAudience
	sb.WriteString("## Target Audience ##\n")
	sb.WriteString("Primary Channels: " + strings.Join(a.Channels, ", ") + "\n\n")
	sb.WriteString("Personas:\n")
	for _, p := range a.Personas {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", p.Name, p.Description))
	}
	sb.WriteString("\n")

	c := plan.ContentPlan
	sb.WriteString("## Content Plan ##\n")
	sb.WriteString("Core Themes: " + strings.Join(c.Themes, ", ") + "\n\n")
	sb.WriteString("Specific Ideas:\n")
	for _, idea := range c.Ideas {
		sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", idea.Format, idea.Title, idea.Description))
	}
	sb.WriteString("\n")

	sb.WriteString("## Campaign Ideas ##\n")
	for _, camp := range plan.CampaignIdeas {
		sb.WriteString("Campaign: " + camp.Name + "\n")
		sb.WriteString("Objective: " + camp.Objective + "\n")
		sb.WriteString("Description: " + camp.Description + "\n")
		sb.WriteString("KPIs: " + strings.Join(camp.KPIs, ", ") + "\n\n")
	}

	return sb.String()
}

package model

// CompanyProfile 用户提交的公司画像
type CompanyProfile struct {
	Name           string `json:"name" yaml:"name" validate:"required"`
	Description    string `json:"description" yaml:"description" validate:"required"`
	TargetAudience string `json:"targetAudience" yaml:"target_audience" validate:"required"`
	Products       string `json:"products" yaml:"products" validate:"required"`
	Goals          string `json:"goals" yaml:"goals" validate:"required"`
	Challenges     string `json:"challenges,omitempty" yaml:"challenges"` // 可选
}

// MarketingPlan 模型生成的营销方案，结构固定
type MarketingPlan struct {
	OverallStrategy OverallStrategy `json:"overallStrategy"`
	TargetAudience  TargetAudience  `json:"targetAudience"`
	ContentPlan     ContentPlan     `json:"contentPlan"`
	CampaignIdeas   []Campaign      `json:"campaignIdeas" validate:"required,dive" jsonschema_description:"Actionable marketing campaign ideas designed to solve the company's problems."`
}

// OverallStrategy 整体策略
type OverallStrategy struct {
	Title      string   `json:"title" validate:"required" jsonschema_description:"A catchy title for the overall marketing strategy."`
	Summary    string   `json:"summary" validate:"required" jsonschema_description:"A concise summary of the core marketing strategy, explicitly mentioning how it addresses the company's challenges if provided."`
	KeyPillars []string `json:"keyPillars" validate:"required,min=3,max=5,dive,required" jsonschema:"minItems=3,maxItems=5" jsonschema_description:"A list of 3-5 key strategic pillars (e.g., Content Leadership, Community Engagement) designed to overcome the stated challenges."`
}

// TargetAudience 目标受众分析
type TargetAudience struct {
	Personas []Persona `json:"personas" validate:"required,dive" jsonschema_description:"Detailed customer personas."`
	Channels []string  `json:"channels" validate:"required,dive,required" jsonschema_description:"A list of the most effective channels to reach these personas (e.g., LinkedIn, Instagram, Tech Blogs)."`
}

// Persona 客户画像
type Persona struct {
	Name        string `json:"name" validate:"required" jsonschema_description:"A name for the customer persona (e.g., 'Tech-Savvy Tina')."`
	Description string `json:"description" validate:"required" jsonschema_description:"A detailed description of this persona's demographics, goals, and pain points."`
}

// ContentPlan 内容规划
type ContentPlan struct {
	Themes []string      `json:"themes" validate:"required,dive,required" jsonschema_description:"A list of overarching content themes that position the company as a solution to its challenges."`
	Ideas  []ContentIdea `json:"ideas" validate:"required,dive" jsonschema_description:"Specific content ideas with titles and descriptions."`
}

// ContentIdea 单条内容创意
type ContentIdea struct {
	Format      string `json:"format" validate:"required" jsonschema_description:"The content format (e.g., 'Blog Post', 'Video Tutorial', 'Instagram Reel')."`
	Title       string `json:"title" validate:"required" jsonschema_description:"A compelling title for the piece of content."`
	Description string `json:"description" validate:"required" jsonschema_description:"A brief description of what the content will cover and which challenge it helps address."`
}

// Campaign 营销活动
type Campaign struct {
	Name        string   `json:"name" validate:"required" jsonschema_description:"A creative name for the marketing campaign."`
	Description string   `json:"description" validate:"required" jsonschema_description:"A detailed description of the campaign concept, explaining how it will tackle a specific company challenge."`
	Objective   string   `json:"objective" validate:"required" jsonschema_description:"The primary goal of the campaign (e.g., 'Lead Generation', 'Brand Awareness')."`
	KPIs        []string `json:"kpis" validate:"required,dive,required" jsonschema_description:"Key Performance Indicators to measure success (e.g., 'Conversion Rate', 'Click-Through Rate')."`
}

// Role 对话角色
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage 对话记录中的一条消息
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	// Pending 表示回复仍在等待中，确认或失败后清除
	Pending bool `json:"pending,omitempty"`
	// Failed 表示该回复是请求失败后的固定兜底文案
	Failed bool `json:"failed,omitempty"`
}

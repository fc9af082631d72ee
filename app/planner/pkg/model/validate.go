package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidProfile 公司画像缺少必填字段
	ErrInvalidProfile = errors.New("invalid company profile")
	// ErrMalformedPlan 模型返回内容无法解析为完整方案
	ErrMalformedPlan = errors.New("malformed marketing plan")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息中使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Normalize 返回去除首尾空白后的画像副本
func (p CompanyProfile) Normalize() CompanyProfile {
	return CompanyProfile{
		Name:           strings.TrimSpace(p.Name),
		Description:    strings.TrimSpace(p.Description),
		TargetAudience: strings.TrimSpace(p.TargetAudience),
		Products:       strings.TrimSpace(p.Products),
		Goals:          strings.TrimSpace(p.Goals),
		Challenges:     strings.TrimSpace(p.Challenges),
	}
}

// Validate 校验五个必填字段在去除空白后非空
func (p CompanyProfile) Validate() error {
	if err := validate.Struct(p.Normalize()); err != nil {
		return describe(ErrInvalidProfile, err)
	}
	return nil
}

// Validate 校验方案的每个部分及其必填子字段都存在
func (p *MarketingPlan) Validate() error {
	if p == nil {
		return ErrMalformedPlan
	}
	if err := validate.Struct(p); err != nil {
		return describe(ErrMalformedPlan, err)
	}
	return nil
}

func describe(kind error, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		return fmt.Errorf("%w: %s failed on '%s'", kind, path, fe.Tag())
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// ParsePlan 解析模型返回的 JSON 文本并校验结构完整性
func ParsePlan(raw string) (*MarketingPlan, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedPlan)
	}

	var plan MarketingPlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FormatShare 某种内容形式在全部内容创意中的占比
type FormatShare struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FormatBreakdown 统计内容创意的形式分布，按数量降序，数量相同时保持首次出现的顺序
func FormatBreakdown(plan *MarketingPlan) []FormatShare {
	if plan == nil || len(plan.ContentPlan.Ideas) == 0 {
		return nil
	}

	var shares []FormatShare
	index := make(map[string]int)
	for _, idea := range plan.ContentPlan.Ideas {
		name := strings.TrimSpace(idea.Format)
		if name == "" {
			name = "Uncategorized"
		}
		i, ok := index[name]
		if !ok {
			i = len(shares)
			index[name] = i
			shares = append(shares, FormatShare{Name: name})
		}
		shares[i].Count++
	}

	total := float64(len(plan.ContentPlan.Ideas))
	for i := range shares {
		shares[i].Percent = float64(shares[i].Count) / total * 100
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	return shares
}

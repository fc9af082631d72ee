package export

import (
	"fmt"
	"net/url"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// shareTarget 部分平台必须携带一个链接
const shareTarget = "https://example.com"

// ShareLink 内容创意的一键分享链接
type ShareLink struct {
	Platform string
	URL      string
}

// ShareLinks 生成内容创意在 X、LinkedIn、Facebook 的分享链接
func ShareLinks(idea dm.ContentIdea) []ShareLink {
	text := fmt.Sprintf(`Check out this content idea: "%s" - %s`, idea.Title, idea.Description)
	return []ShareLink{
		{Platform: "X", URL: "https://twitter.com/intent/tweet?" + url.Values{"text": {text}}.Encode()},
		{Platform: "LinkedIn", URL: "https://www.linkedin.com/shareArticle?" + url.Values{
			"mini":    {"true"},
			"url":     {shareTarget},
			"title":   {idea.Title},
			"summary": {idea.Description},
		}.Encode()},
		{Platform: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?" + url.Values{
			"u":     {shareTarget},
			"quote": {text},
		}.Encode()},
	}
}

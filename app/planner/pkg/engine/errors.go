package engine

// GenerationFailedMessage 展示给终端用户的通用错误信息
const GenerationFailedMessage = "Failed to generate marketing plan"

// GenerationError 方案生成失败。Error 只返回通用信息，
// 具体原因通过 Unwrap 获取并已写入日志。
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return GenerationFailedMessage
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

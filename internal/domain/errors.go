package domain

import "errors"

var (
	ErrNotFound        = errors.New("记录不存在")
	ErrVersionConflict = errors.New("记录已被他人修改，请刷新后重试")

	// 状态类错误：操作被拒绝，聚合保持不变
	ErrInvalidState      = errors.New("当前状态不允许该操作")
	ErrInsufficientHours = errors.New("申报工时不足，无法提交")
	ErrNotReviewed       = errors.New("申报尚未审核，无法同步")

	// 映射类错误：在同步结果中按天记录
	ErrUnknownShiftKind    = errors.New("未知的班次类型")
	ErrMissingRegimeHours  = errors.New("劳动制度未配置该班次的工时")
	ErrMissingScheduleCode = errors.New("劳动制度未配置该班次的排班代码")

	// 冲突类错误
	ErrScheduleAlreadyExists = errors.New("排班表已存在，如需覆盖请开启 overwrite")
	ErrConcurrentSync        = errors.New("排班表正在被并发同步，请稍后重试")
	ErrDuplicateDeclaration  = errors.New("该周期与专科的申报已存在")
	ErrDuplicateUser         = errors.New("用户名或邮箱已被占用")

	ErrShiftNotFound = errors.New("该日期没有申报班次")
)

// ValidationError 表示调用边界上的字段级校验失败
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

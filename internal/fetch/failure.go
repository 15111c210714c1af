package fetch

import (
	"errors"
	"fmt"
)

// Kind 是下载失败的穷举分类，原样透传给流水线与所有等待者。
type Kind string

const (
	// KindTimeout 表示外部工具超出了墙钟时限。
	KindTimeout Kind = "timeout"
	// KindToolError 表示外部工具以失败状态结束。
	KindToolError Kind = "tool_error"
	// KindOversize 表示产物超过单文件上限，已被丢弃。
	KindOversize Kind = "oversize"
	// KindUnexpected 兜底其余情况，包括发布阶段的磁盘错误。
	KindUnexpected Kind = "unexpected"
)

// Failure 携带失败分类与底层原因。
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf 提取错误的失败分类；非 Failure 的错误一律视为 unexpected。
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnexpected
}

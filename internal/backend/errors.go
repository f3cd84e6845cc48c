package backend

import "fmt"

// SubmissionError 提交请求失败（网络错误、非 2xx 响应或响应缺少 task_id）
//
// 服务端有响应体时原样透出，供界面直接展示。
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to submit task: %v", e.Err)
	}
	return fmt.Sprintf("failed to submit task: HTTP %d", e.StatusCode)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError 状态查询请求自身失败（网络错误或非 2xx 响应）
//
// 区别于服务端明确报告的 failed 状态：后者是任务失败，这里是查询失败。
type PollError struct {
	StatusCode int
	Err        error
}

func (e *PollError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to check task status: %v", e.Err)
	}
	return fmt.Sprintf("failed to check task status: HTTP %d", e.StatusCode)
}

func (e *PollError) Unwrap() error { return e.Err }

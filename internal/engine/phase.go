package engine

// PhaseStep 一个进度阶段：进度小于 UpTo 时命中该档
type PhaseStep struct {
	UpTo  float64
	Label string
}

// PhaseTable 有序阶段表，按升序逐档匹配，第一个命中生效
//
// 各档为左闭右开区间，最后一档的上界按闭区间处理（100 仍命中最后一档）。
type PhaseTable []PhaseStep

// Label 根据进度取阶段文案
func (t PhaseTable) Label(progress float64) string {
	for _, step := range t {
		if progress < step.UpTo {
			return step.Label
		}
	}
	if len(t) > 0 {
		return t[len(t)-1].Label
	}
	return ""
}

// VideoPhases 视频分析管线的阶段表
var VideoPhases = PhaseTable{
	{UpTo: 40, Label: "Processing video frames"},
	{UpTo: 55, Label: "Extracting audio"},
	{UpTo: 80, Label: "Transcribing audio"},
	{UpTo: 90, Label: "Analyzing content"},
	{UpTo: 100, Label: "Finalizing results"},
}

// DatasetPhases 数据集上传管线的阶段表
var DatasetPhases = PhaseTable{
	{UpTo: 50, Label: "Saving images"},
	{UpTo: 90, Label: "Building dataset"},
	{UpTo: 100, Label: "Finalizing dataset"},
}

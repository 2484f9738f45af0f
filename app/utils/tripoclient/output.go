package tripoclient

// modelSlots 提取模型 URL 时扫描的槽位顺序，命中即停
var modelSlots = []string{"model", "pbr_model", "base_model"}

// ExtractModelURL 从成功任务的输出中取出模型 URL
//
// 按 model → pbr_model → base_model 的顺序找第一个以 http 开头的引用，
// 都没有则返回 NoModelURLError（终态错误，不自动重试）。
func ExtractModelURL(task *Task) (string, error) {
	if task != nil && task.Output != nil {
		for _, slot := range modelSlots {
			if ref, ok := task.Output[slot]; ok && ref.Valid() {
				return ref.URL, nil
			}
		}
	}
	taskID := ""
	if task != nil {
		taskID = task.TaskID
	}
	return "", &NoModelURLError{TaskID: taskID}
}
